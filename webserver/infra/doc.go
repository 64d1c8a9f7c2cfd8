// Package infra contém implementações concretas para os contratos de domain.
//
// Exemplos:
//   - ChanGate: pool de permissões contável sobre um channel bufferizado
//   - SlotQueue: fila de handoff de capacidade 1
//   - BucketStore: token bucket por cliente usando golang.org/x/time/rate
//   - MemoryStatsStore / RedisStatsStore: contadores de despacho
package infra
