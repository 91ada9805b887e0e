// Package wren implements a minimal SMTP server and client speaking a
// newline-delimited subset of the protocol: HELO, MAIL FROM, RCPT TO, DATA
// and QUIT, with grammar-driven command parsing and a five-state session
// machine on the server side and a strict lock-step conversation driver on
// the client side.
//
// # Server
//
// Create a server that appends delivered mail to per-domain forward files:
//
//	sink, err := wren.NewForwardFileSink("/var/spool/wren")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	config := wren.DefaultServerConfig()
//	config.Hostname = "mail.example.com"
//	config.Sink = sink
//
//	server, err := wren.NewServer(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	log.Fatal(server.ListenAndServe())
//
// Each accepted connection runs its own session goroutine; sessions share
// nothing but the delivery sink, which serializes concurrent appends per
// recipient domain.
//
// # Client
//
// Compose a transaction and send it over one connection:
//
//	tx, err := wren.NewTransactionBuilder().
//	    From("alice@x.example").
//	    To("bob@y.example").
//	    Body("Hello world").
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	dialer := wren.NewDialer("mail.example.com", 2525)
//	if err := dialer.DialAndSend(tx); err != nil {
//	    log.Fatal(err)
//	}
//
// The conversation is half-duplex and strictly sequential: every command
// waits for its single reply before the next goes out, and any reply that
// fails its expected grammar aborts the connection with a *ProtocolError.
package wren
