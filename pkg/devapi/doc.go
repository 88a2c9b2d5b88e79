// Package devapi is a small in-memory server for local development of the
// form client. It answers the login, signup and laptop listing endpoints with
// the same response shapes the client expects from a real backend.
//
//	srv := devapi.NewServer(devapi.WithLaptopStore(devapi.NewLaptopStore(devapi.SeedLaptops...)))
//	http.ListenAndServe(":4000", srv.Handler())
package devapi
