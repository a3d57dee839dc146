package feed

import (
	"encoding/json"
	"math/big"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/helinwang/bridgetower/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	Origin common.Address `json:"origin"`
	Time   uint64         `json:"time"`
	Root   common.Hash    `json:"root"`
	Events []struct {
		Address common.Address  `json:"address"`
		Name    string          `json:"event"`
		Data    json.RawMessage `json:"data"`
	} `json:"events"`
}

func dial(t *testing.T, f *Feed, query string) *websocket.Conn {
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	n := f.Clients()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return f.Clients() == n+1 }, time.Second, 10*time.Millisecond)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) message {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestPublish(t *testing.T) {
	f := New()
	conn := dial(t, f, "/")

	origin := common.HexToAddress("0xa11ce")
	f.Publish(&ledger.Receipt{
		Origin: origin,
		Time:   42,
		Root:   common.HexToHash("0x01"),
		Events: []ledger.Event{{Address: common.HexToAddress("0xe8c4"), Name: "Match", Data: map[string]int{"fill": 3}}},
	})

	m := read(t, conn)
	assert.Equal(t, origin, m.Origin)
	assert.Equal(t, uint64(42), m.Time)
	require.Len(t, m.Events, 1)
	assert.Equal(t, "Match", m.Events[0].Name)
	assert.JSONEq(t, `{"fill":3}`, string(m.Events[0].Data))
}

func TestEventFilter(t *testing.T) {
	f := New()
	conn := dial(t, f, "/?events=Cancel,Locked")

	f.Publish(&ledger.Receipt{Events: []ledger.Event{{Name: "Match"}}})
	f.Publish(&ledger.Receipt{Time: 7, Events: []ledger.Event{{Name: "Match"}, {Name: "Locked"}}})

	// the first receipt has nothing of interest and is skipped
	m := read(t, conn)
	assert.Equal(t, uint64(7), m.Time)
	require.Len(t, m.Events, 1)
	assert.Equal(t, "Locked", m.Events[0].Name)
}

func TestAttach(t *testing.T) {
	c := ledger.NewChain(big.NewInt(1))
	f := New()
	detach := f.Attach(c)
	conn := dial(t, f, "/")

	from := common.HexToAddress("0xa11ce")
	emit := func() {
		_, err := c.Exec(ledger.Msg{From: from}, func(tx *ledger.Tx) error {
			tx.Emit(from, "Ping", 1)
			return nil
		})
		require.NoError(t, err)
	}

	emit()
	m := read(t, conn)
	assert.Equal(t, from, m.Origin)
	require.Len(t, m.Events, 1)
	assert.Equal(t, "Ping", m.Events[0].Name)

	detach()
	emit()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestSlowClientDropped(t *testing.T) {
	f := New()
	dial(t, f, "/")

	// nobody reads, the buffer fills up and the client is removed
	payload := strings.Repeat("x", 1<<16)
	for i := 0; i < sendBuffer*16 && f.Clients() > 0; i++ {
		f.Publish(&ledger.Receipt{Events: []ledger.Event{{Name: "Spam", Data: payload}}})
	}
	require.Eventually(t, func() bool { return f.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClose(t *testing.T) {
	f := New()
	conn := dial(t, f, "/")
	f.Close()
	assert.Equal(t, 0, f.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
