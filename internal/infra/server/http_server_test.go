package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServe_GracefulStop(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, lis, &config.Config{}, handler, zap.NewNop()) }()

	url := "http://" + lis.Addr().String() + "/"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "pong"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartHTTPServer_BadAddress(t *testing.T) {
	err := StartHTTPServer(context.Background(), &config.Config{HTTPAddress: "bad-address"}, http.NotFoundHandler(), zap.NewNop())
	require.Error(t, err)
}
