// gridmatch-check dials a running server, creates a throwaway account and
// logs in with it, reporting round-trip status. Intended for deployment
// smoke checks.
package main

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kapu/gridmatch/internal/protocol"
)

func main() {
	addr := os.Getenv("GRIDMATCH_ADDR")
	if addr == "" {
		addr = "127.0.0.1:5491"
	}

	start := time.Now()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		log.Fatalf("dial %s: %v", addr, err)
	}
	defer conn.Close()
	log.Printf("connected to %s in %s", addr, time.Since(start).Round(time.Millisecond))

	rd := bufio.NewReader(conn)
	name := "check-" + uuid.NewString()[:8]

	reply := roundTrip(conn, rd, protocol.Encode(protocol.CreateAccount, name, "check"))
	log.Printf("create account %s -> %q", name, reply)

	reply = roundTrip(conn, rd, protocol.Encode(protocol.Login, name, "check"))
	log.Printf("login %s -> %q", name, reply)

	fmt.Println("ok")
}

func roundTrip(conn net.Conn, rd *bufio.Reader, frame string) string {
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write([]byte(frame + "\n")); err != nil {
		log.Fatalf("write: %v", err)
	}
	line, err := rd.ReadString('\n')
	if err != nil {
		log.Fatalf("read: %v", err)
	}
	return line
}
