package s3blob

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

func TestArchiverConfigDefaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewArchiver(nil, ArchiverConfig{RunID: "run-1"}, logger)

	assert.Equal(t, "events", a.cfg.Prefix)
	assert.Equal(t, 500, a.cfg.FlushEvents)
	assert.NotZero(t, a.cfg.FlushInterval)
}

func TestObjectKeySortsByPosition(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewArchiver(nil, ArchiverConfig{Prefix: "events", RunID: "run-1"}, logger)

	early := a.objectKey(domain.Position{Block: 18423001, TxIndex: 3, LogIndex: 17})
	late := a.objectKey(domain.Position{Block: 18423002})

	assert.Equal(t, "events/run-1/000000018423001-000003-000017.ndjson", early)
	assert.Less(t, early, late, "keys within a run must list in chain order")
}

func TestMarshalNDJSON(t *testing.T) {
	events := []domain.Event{
		{
			Position:  domain.Position{Block: 1},
			Kind:      domain.KindLiquidityDeposited,
			Timestamp: 1700000001,
			Payload:   domain.LiquidityDeposited{DeskID: 1, Amount: big.NewInt(250)},
		},
		{
			Position: domain.Position{Block: 2},
			Kind:     domain.KindDeskDissolved,
			Payload:  domain.DeskDissolved{DeskID: 1},
		},
	}

	data, err := marshalNDJSON(events)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, string(domain.KindLiquidityDeposited), first["kind"])
	assert.Equal(t, float64(1700000001), first["timestamp"])
}
