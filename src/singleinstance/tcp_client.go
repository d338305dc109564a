package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

type tcpClient struct {
	port int
}

func newTcpClient(port int) *tcpClient { return &tcpClient{port: port} }

func (c *tcpClient) TryCapture(ctx context.Context) (bool, error) {
	deadline := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			deadline = d
		}
	}
	addr := net.JoinHostPort(residentHost, strconv.Itoa(c.port))
	if !ping(addr, deadline) {
		return false, nil
	}

	conn, err := net.DialTimeout("tcp", addr, deadline)
	if err != nil {
		return false, nil
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(deadline))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(string(CommandCapture) + "\n"); err != nil {
		return true, err
	}
	if err := w.Flush(); err != nil {
		return true, err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return true, err
	}
	msg, _ := io.ReadAll(br)
	switch status {
	case successLine:
		return true, nil
	case errorLine:
		return true, errors.New(string(msg))
	}
	return true, fmt.Errorf("unexpected response %q", status)
}
