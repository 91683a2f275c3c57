package main

import (
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminder-api/pkg/logger"
)

func TestServeReturnsListenerFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	srv := &http.Server{Addr: taken.Addr().String(), Handler: http.NotFoundHandler()}
	stopped := false

	err = serve(srv, make(chan os.Signal), func() { stopped = true }, time.Second, logger.Nop())
	assert.Error(t, err)
	assert.True(t, stopped, "intake must be stopped before returning")
}

func TestServeShutsDownOnSignal(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM
	stopped := false

	err := serve(srv, quit, func() { stopped = true }, time.Second, logger.Nop())
	assert.NoError(t, err)
	assert.True(t, stopped)
}
