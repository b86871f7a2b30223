// Package server runs the gateway's http.Server with graceful shutdown.
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, handler))
//	return g.Wait()
//
// Run serves until ctx is cancelled and then shuts down within the configured
// timeout. Request contexts derive from ctx, so blocked subscribe calls return
// as soon as shutdown begins.
//
// Config is loaded from SERVER_* environment variables (see core/config).
// The write timeout defaults to zero because subscribe responses may stay
// open indefinitely. TLS is enabled by setting SERVER_TLS_CERT_FILE and
// SERVER_TLS_KEY_FILE.
package server
