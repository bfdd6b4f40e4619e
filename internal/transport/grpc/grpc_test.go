package grpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/cognia-intellilearn/voicegate/internal/message"
	"github.com/cognia-intellilearn/voicegate/internal/transport"
)

type stubSpeech struct{ publish bool }

func (s stubSpeech) Synthesize(context.Context, *message.SynthesisRequest) (string, error) {
	return "", nil
}

func (s stubSpeech) Publish(context.Context, *message.SynthesisRequest) (string, error) {
	return "", nil
}

func (s stubSpeech) CanPublish() bool { return s.publish }

func stubSessions(context.Context, *message.SessionRequest) (*message.SessionResponse, error) {
	return nil, nil
}

func startServer(t *testing.T, backend transport.Backend) (*Transport, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	tr := New(0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tr.Serve(ctx, lis, backend)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})
	return tr, healthpb.NewHealthClient(conn)
}

func status(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service}, grpc.WaitForReady(true))
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthFollowsServingState(t *testing.T) {
	tr, client := startServer(t, transport.Backend{Speech: stubSpeech{}, Sessions: stubSessions})

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, client, ServiceSpeech))

	tr.SetServing(true)
	for _, svc := range []string{"", ServiceSpeech, ServiceSessions} {
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, client, svc), svc)
	}

	tr.SetServing(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, client, ServiceSessions))
}

func TestPublishServiceOnlyWhenEnabled(t *testing.T) {
	tr, client := startServer(t, transport.Backend{Speech: stubSpeech{}, Sessions: stubSessions})
	tr.SetServing(true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServicePublish}, grpc.WaitForReady(true))
	require.Error(t, err, "unknown service")

	tr, client = startServer(t, transport.Backend{Speech: stubSpeech{publish: true}, Sessions: stubSessions})
	tr.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, client, ServicePublish))
}

func TestSetServingBeforeServe(t *testing.T) {
	tr := New(0)
	tr.SetServing(true)
	assert.Equal(t, "grpc", tr.Name())
	assert.NoError(t, tr.Close(), "close before serve is a no-op")
}

func TestCloseWhileServing(t *testing.T) {
	tr := New(0)
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- tr.Serve(ctx, lis, transport.Backend{Speech: stubSpeech{}, Sessions: stubSessions})
	}()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tr.Close())
		}()
	}
	wg.Wait()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
	assert.NoError(t, tr.Close())
}
