// Package webserver fornece o adapter HTTP (net/http) do subsistema de despacho assíncrono.
//
// Visão geral (camadas):
//
//   - domain: contratos (Request, Handler, gate, fila) sem dependência de net/http
//   - application: pool de workers, dispatcher, stream com cadência, throttle
//   - infra: gate sobre channel, fila de slot único, token bucket, stats
//   - webserver (este pacote): Exchange (detach/complete), registro de rotas,
//     handlers de exemplo e tradução de Outcome para status HTTP
//
// Fluxo de GET /long:
//
//  1. Cria um Exchange para a request
//  2. Chama o Dispatcher: sem worker ocioso responde 503 na hora
//  3. Aceito: a goroutine do net/http espera o Complete do worker
//  4. O worker envia os chunks com cadência e completa a request
//
// GET / e GET /quick são síncronos e nunca passam pela admissão.
package webserver
