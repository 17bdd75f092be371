package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Retcom59/heritage-app/pkg/cache"
	"github.com/Retcom59/heritage-app/pkg/catalog"
	"github.com/Retcom59/heritage-app/pkg/config"
	"github.com/Retcom59/heritage-app/pkg/explore"
	"github.com/Retcom59/heritage-app/pkg/location"
	"github.com/Retcom59/heritage-app/pkg/request"
	"github.com/Retcom59/heritage-app/pkg/route"
	"github.com/Retcom59/heritage-app/pkg/tracker"
)

func newEventsFixture(t *testing.T) (*explore.Session, *httptest.Server) {
	t.Helper()

	reqClient := request.New(cache.Null{}, tracker.New(), request.ClientConfig{Retries: 1})
	cat := catalog.New(reqClient, config.CatalogConfig{BaseURL: "http://localhost:0/api/sites", Limit: 10})
	sess := explore.New(cat, route.NewManager(nil), location.NewTracker(nopSource{}), config.MapConfig{})

	h := NewEventsHandler(sess)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleEvents))
	t.Cleanup(srv.Close)
	return sess, srv
}

func dialEvents(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEventsSnapshotFirst(t *testing.T) {
	sess, srv := newEventsFixture(t)
	conn := dialEvents(t, srv)

	var ev struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "state", ev.Type)

	// Subsequent session events stream in order
	sess.EmitLocate()
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, explore.EventLocate, ev.Type)
}

// A burst of events racing the connection handshake must not disturb
// the snapshot delivery.
func TestEventsSnapshotSurvivesBroadcastBurst(t *testing.T) {
	sess, srv := newEventsFixture(t)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				sess.EmitLocate()
			}
		}
	}()

	conn := dialEvents(t, srv)

	var ev struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "state", ev.Type)

	close(stop)
	wg.Wait()
}
