package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chemequip/backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []models.DatasetEvent
	err error
}

func (r *recorder) Publish(_ context.Context, ev models.DatasetEvent) error {
	r.got = append(r.got, ev)
	return r.err
}

func sampleEvent() models.DatasetEvent {
	ds := &models.Dataset{
		ID:         "9b2f6c1e-1111-4000-8000-000000000002",
		FileName:   "plant.csv",
		UploadedAt: time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC),
		Summary:    models.Summary{TotalEquipment: 3, TypeDistribution: map[string]int{"Pump": 3}},
	}
	return Created(ds, 1)
}

func TestCreated(t *testing.T) {
	ev := sampleEvent()
	assert.Equal(t, models.EventDatasetCreated, ev.Type)
	assert.Equal(t, "9b2f6c1e-1111-4000-8000-000000000002", ev.DatasetID)
	assert.Equal(t, "plant.csv", ev.FileName)
	assert.Equal(t, 1, ev.Pruned)
	assert.Equal(t, 3, ev.Summary.TotalEquipment)
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{err: errors.New("broker down")}
	last := &recorder{}

	err := Multi{ok, failing, nil, last}.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, ok.got, 1)
	assert.Len(t, last.got, 1, "a failing sink must not stop the others")

	assert.NoError(t, Multi{ok}.Publish(context.Background(), sampleEvent()))
	assert.NoError(t, Nop{}.Publish(context.Background(), sampleEvent()))
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil)
	e := echo.New()
	e.GET("/api/ws/datasets", hub.HandleWebSocket)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/datasets"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello WSMessage
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, MsgTypeConnected, hello.Type)
	return conn
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)
	assert.Equal(t, 2, hub.Clients())

	require.NoError(t, hub.Publish(context.Background(), sampleEvent()))

	for _, conn := range []*websocket.Conn{a, b} {
		var ev models.DatasetEvent
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, models.EventDatasetCreated, ev.Type)
		assert.Equal(t, "plant.csv", ev.FileName)
		assert.Equal(t, 1, ev.Pruned)
	}
}

func TestHub_PingPong(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing}))
	var reply WSMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, MsgTypePong, reply.Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "subscribe"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, MsgTypeError, reply.Type)
	assert.Contains(t, reply.Message, "subscribe")
}

func TestHub_ForgetsClosedClients(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Equal(t, 1, hub.Clients())

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, hub.Publish(context.Background(), sampleEvent()))
}

func TestNewRecord(t *testing.T) {
	ev := sampleEvent()
	rec, err := newRecord(ev)
	require.NoError(t, err)

	assert.Equal(t, []byte(ev.DatasetID), rec.Key)
	assert.Empty(t, rec.Topic, "topic comes from the client default")
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, headerEventType, rec.Headers[0].Key)
	assert.Equal(t, []byte(models.EventDatasetCreated), rec.Headers[0].Value)

	var back models.DatasetEvent
	require.NoError(t, json.Unmarshal(rec.Value, &back))
	assert.Equal(t, ev.DatasetID, back.DatasetID)
	assert.True(t, ev.UploadedAt.Equal(back.UploadedAt))
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "datasets", 0)
	assert.Error(t, err)

	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "", 0)
	assert.Error(t, err)

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "datasets", time.Second)
	require.NoError(t, err)
	p.Close()
}
