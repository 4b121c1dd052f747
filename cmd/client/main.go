// Command client is the interactive front-end: it reads lines of the form
// "<command> [argument]" from stdin, sends them as request frames, and
// renders incoming responses with the colored console logger.
package main

import (
	"bufio"
	"net"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"streamchat/internal/logging"
	"streamchat/internal/protocol"
)

func main() {
	var (
		host string
		port int
	)
	flag.StringVarP(&host, "host", "H", "127.0.0.1", "Server address")
	flag.IntVarP(&port, "port", "p", 1337, "Server port")
	flag.Parse()

	log := logging.New(logging.LevelInfo)

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	log.Success("Connected to %s", addr)

	done := make(chan struct{})
	go receive(conn, log, done)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		cmd, err := protocol.ParseLine(line)
		if err != nil {
			log.Error("%s", err)
			continue
		}

		payload, err := protocol.EncodeRequest(cmd)
		if err != nil {
			log.Error("%v", err)
			continue
		}
		if _, err := conn.Write(payload); err != nil {
			log.Error("%v", err)
			break
		}

		if cmd.Kind == protocol.CmdLogout {
			return
		}
	}

	_ = conn.Close()
	<-done
}

// receive decodes response frames off the connection and renders them until
// the server goes away.
func receive(conn net.Conn, log *logging.Logger, done chan<- struct{}) {
	defer close(done)

	dec := protocol.NewFrameDecoder(conn)
	for {
		raw, err := dec.Next()
		if err != nil {
			log.Error("Connection closed.")
			os.Exit(0)
		}

		resp, err := protocol.DecodeResponse(raw)
		if err != nil {
			log.Error("%v", err)
			continue
		}

		switch resp.Kind {
		case protocol.RespError:
			log.ErrorAt(resp.Timestamp, "%s: %s", resp.Sender, resp.ContentText())
		case protocol.RespHistory:
			log.HistoryAt(resp.Timestamp, "%s wrote: %s", resp.Sender, resp.ContentText())
		case protocol.RespMessage:
			log.InfoAt(resp.Timestamp, "%s: %s", resp.Sender, resp.ContentText())
		default:
			log.InfoAt(resp.Timestamp, "%s", resp.ContentText())
		}
	}
}
