// Package domain define os contratos do subsistema de admissão e despacho assíncrono.
//
// Este pacote não depende de net/http nem de implementações concretas: gate,
// fila de handoff, request destacável e handlers são apenas interfaces e tipos.
// Assim o pool e o dispatcher podem ser testados sem servidor HTTP.
package domain
