package wren

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

// scriptedServer reads command lines off a pipe and answers from a canned
// script, recording everything the client sent.
type scriptedServer struct {
	conn    net.Conn
	replies []string

	done chan struct{}
	got  []string
}

func newScriptedServer(conn net.Conn, replies []string) *scriptedServer {
	s := &scriptedServer{
		conn:    conn,
		replies: replies,
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *scriptedServer) run() {
	defer close(s.done)
	defer s.conn.Close()

	reader := bufio.NewReader(s.conn)

	// Greeting goes out unprompted.
	if len(s.replies) > 0 {
		if _, err := s.conn.Write([]byte(s.replies[0] + "\n")); err != nil {
			return
		}
		s.replies = s.replies[1:]
	}

	for _, reply := range s.replies {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		s.got = append(s.got, strings.TrimSuffix(line, "\n"))
		if reply == "" {
			// Absorb the line without replying, for data lines.
			continue
		}
		if _, err := s.conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
	}
}

func (s *scriptedServer) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatal("scripted server did not finish")
	}
	return s.got
}

func testTransaction(t *testing.T) *Transaction {
	t.Helper()
	tx, err := NewTransactionBuilder().
		From("a@x.com").
		To("b@y.com", "c@z.com").
		Lines("Hello world", "bye").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func newPipedClient(t *testing.T, replies []string) (*Client, *scriptedServer) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	server := newScriptedServer(serverConn, replies)

	client := NewClient(&ClientConfig{
		LocalName:   "client.example",
		ReadTimeout: 5 * time.Second,
	})
	if err := client.Connect(clientConn); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return client, server
}

func TestClientFullConversation(t *testing.T) {
	client, server := newPipedClient(t, []string{
		"220 test.example.com",
		"250 Hello 127.0.0.1 pleased to meet you", // HELO
		"250 OK", // MAIL FROM
		"250 OK", // RCPT TO b
		"250 OK", // RCPT TO c
		"354 Start mail input; end with <CRLF>.<CRLF>", // DATA
		"",       // data line 1
		"",       // data line 2
		"250 OK", // end-of-data marker
		"221 test.example.com closing connection", // QUIT
	})

	if err := client.Hello(); err != nil {
		t.Fatalf("Hello: %v", err)
	}
	if err := client.Send(testTransaction(t)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := client.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}

	want := []string{
		"HELO client.example",
		"MAIL FROM:<a@x.com>",
		"RCPT TO:<b@y.com>",
		"RCPT TO:<c@z.com>",
		"DATA",
		"Hello world",
		"bye",
		".",
		"QUIT",
	}
	got := server.wait(t)
	if len(got) != len(want) {
		t.Fatalf("server saw %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestClientRejectsBadGreeting(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	newScriptedServer(serverConn, []string{"500 go away"})

	client := NewClient(&ClientConfig{ReadTimeout: 5 * time.Second})
	err := client.Connect(clientConn)
	if err == nil {
		t.Fatal("expected greeting mismatch to fail")
	}
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
	if pe.Step != "greeting" {
		t.Errorf("step = %q, want %q", pe.Step, "greeting")
	}
}

func TestClientProtocolViolationIsFatal(t *testing.T) {
	client, _ := newPipedClient(t, []string{
		"220 test.example.com",
		"354 wrong code for HELO",
	})

	err := client.Hello()
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
	if pe.Step != "HELO" {
		t.Errorf("step = %q, want %q", pe.Step, "HELO")
	}
	if pe.Received != "354 wrong code for HELO\n" {
		t.Errorf("received = %q", pe.Received)
	}

	// The connection is gone; no resynchronization is attempted.
	if err := client.Hello(); !errors.Is(err, ErrNoConnection) {
		t.Errorf("Hello after violation = %v, want ErrNoConnection", err)
	}
}

func TestClientMidTransactionViolation(t *testing.T) {
	client, _ := newPipedClient(t, []string{
		"220 test.example.com",
		"250 Hello you",
		"250 OK",
		"503 Bad sequence of commands", // RCPT rejected
	})

	if err := client.Hello(); err != nil {
		t.Fatalf("Hello: %v", err)
	}

	err := client.Send(testTransaction(t))
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
	if pe.Step != "RCPT TO" {
		t.Errorf("step = %q, want %q", pe.Step, "RCPT TO")
	}
}

func TestClientSendWithoutConnection(t *testing.T) {
	client := NewClient(nil)
	if err := client.Send(testTransaction(t)); !errors.Is(err, ErrNoConnection) {
		t.Errorf("err = %v, want ErrNoConnection", err)
	}
	if err := client.Hello(); !errors.Is(err, ErrNoConnection) {
		t.Errorf("err = %v, want ErrNoConnection", err)
	}
}

func TestClientSendRequiresRecipients(t *testing.T) {
	client, _ := newPipedClient(t, []string{
		"220 test.example.com",
		"250 Hello you",
	})
	if err := client.Hello(); err != nil {
		t.Fatalf("Hello: %v", err)
	}

	tx := NewTransaction()
	tx.From = Path{Mailbox: Mailbox{LocalPart: "a", Domain: "x.com"}}
	if err := client.Send(tx); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("err = %v, want ErrNoRecipients", err)
	}
}

func TestClientDialAfterClose(t *testing.T) {
	client := NewClient(nil)
	client.Close()
	if err := client.Dial("127.0.0.1:1"); !errors.Is(err, ErrClientClosed) {
		t.Errorf("err = %v, want ErrClientClosed", err)
	}
}
