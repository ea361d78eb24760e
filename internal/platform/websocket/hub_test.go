package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/encounter/internal/platform/events"
)

func receive(t *testing.T, c *Client) message {
	t.Helper()
	select {
	case data := <-c.Send:
		var m message
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return message{}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient("encounter:e1")
	hub.Register(client)

	if hub.ClientCount() != 1 || hub.TopicCount("encounter:e1") != 1 {
		t.Fatalf("expected one subscribed client, got %d/%d", hub.ClientCount(), hub.TopicCount("encounter:e1"))
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 || hub.TopicCount("encounter:e1") != 0 {
		t.Error("expected client to be removed")
	}
	if _, ok := <-client.Send; ok {
		t.Error("expected Send to be closed")
	}
	hub.Unregister(client)
}

func TestHub_PublishByTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	mine := NewClient("encounter:e1")
	other := NewClient("encounter:e2")
	everything := NewClient(AllTopics)
	hub.Register(mine)
	hub.Register(other)
	hub.Register(everything)

	err := hub.Publish(context.Background(), events.ComponentSigned, events.ComponentEvent{EncounterID: "e1", ComponentID: "c1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m := receive(t, mine); m.Type != events.ComponentSigned || m.Topic != "encounter:e1" {
		t.Errorf("unexpected message %+v", m)
	}
	receive(t, everything)
	select {
	case <-other.Send:
		t.Error("expected no event for another encounter")
	default:
	}
}

func TestHub_NoDuplicateForWildcardAndTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient("encounter:e1", AllTopics)
	hub.Register(client)

	hub.Publish(context.Background(), events.EncounterDone, events.EncounterEvent{EncounterID: "e1"})
	receive(t, client)
	select {
	case <-client.Send:
		t.Error("expected a single delivery")
	default:
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient()
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{"encounter:e1", "encounter:e2"}})
	if hub.TopicCount("encounter:e1") != 1 || hub.TopicCount("encounter:e2") != 1 {
		t.Fatal("expected both subscriptions")
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{"encounter:e1"}})
	if hub.TopicCount("encounter:e1") != 0 || hub.TopicCount("encounter:e2") != 1 {
		t.Error("expected only encounter:e1 to be dropped")
	}
	if len(client.Topics) != 1 || client.Topics[0] != "encounter:e2" {
		t.Errorf("unexpected topics %v", client.Topics)
	}
}

func TestHub_SubscribeNarrowsDefaultFeed(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient(AllTopics)
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{"encounter:a"}})
	if hub.TopicCount(AllTopics) != 0 {
		t.Fatal("expected the wildcard subscription to be dropped")
	}
	if len(client.Topics) != 1 || client.Topics[0] != "encounter:a" {
		t.Errorf("unexpected topics %v", client.Topics)
	}

	hub.Publish(context.Background(), events.EncounterDone, events.EncounterEvent{EncounterID: "b"})
	select {
	case <-client.Send:
		t.Fatal("expected no event for encounter b after narrowing to encounter a")
	default:
	}

	hub.Publish(context.Background(), events.EncounterDone, events.EncounterEvent{EncounterID: "a"})
	if m := receive(t, client); m.Topic != "encounter:a" {
		t.Errorf("unexpected message %+v", m)
	}
}

func TestHub_SubscribeWildcardKeepsFeed(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient(AllTopics)
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{AllTopics, "encounter:a"}})
	hub.Publish(context.Background(), events.EncounterDone, events.EncounterEvent{EncounterID: "b"})
	receive(t, client)
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "slow", Topics: []string{AllTopics}, Send: make(chan []byte)}
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		hub.Publish(context.Background(), events.EncounterCreated, events.EncounterEvent{EncounterID: "e1"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow client")
	}
}

func TestHandler_EndToEnd(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := echo.New()
	e.GET("/ws", NewHandler(hub, nil).Connect)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?topic=encounter:e1"
	conn, _, err := gorillawebsocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.TopicCount("encounter:e1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(context.Background(), events.EncounterSigned, events.EncounterEvent{EncounterID: "e1", State: "signed"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m message
	json.Unmarshal(data, &m)
	if m.Type != events.EncounterSigned || m.Topic != "encounter:e1" {
		t.Errorf("unexpected message %+v", m)
	}
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	h := NewHandler(NewHub(zerolog.Nop()), []string{"http://allowed.test"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	if h.upgrader.CheckOrigin(req) {
		t.Error("expected a foreign origin to be rejected")
	}
	req.Header.Set("Origin", "http://allowed.test")
	if !h.upgrader.CheckOrigin(req) {
		t.Error("expected an allowed origin to pass")
	}
}
