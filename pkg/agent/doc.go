// Package agent wires the Treblle agent together from a config.Config.
//
// An Agent owns a gatherer, a publisher, the Prometheus collector and, when
// enabled, the delivery journal. Host applications wrap their handler:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("treblle.yaml")
//	if err != nil {
//	    return err
//	}
//	a, err := agent.New(cfg)
//	if err != nil {
//	    log.Print(err) // missing credentials: a is a disabled, pass-through agent
//	}
//	defer a.Close()
//
//	http.ListenAndServe(":8080", a.Handler(mux))
//
// Missing credentials never fail the host: New returns a disabled agent
// together with ErrMissingSDKToken and/or ErrMissingAPIKey.
package agent
