// Package application contém os casos de uso do subsistema assíncrono:
// o pool de workers, o dispatcher, o stream com cadência e o throttle por cliente.
//
// Depende apenas de domain e não conhece net/http.
// Ex.: Dispatcher.Dispatch(ctx, route, req, h) devolve um Outcome
// (inline, accepted, busy ou failed).
package application
