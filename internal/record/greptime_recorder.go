package record

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
	"github.com/juju/errors"
)

// DefaultGreptimeTable is where send records land unless configured otherwise.
const DefaultGreptimeTable = "thingspeak_sends"

const defaultGreptimePort = 4001

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeRecorder mirrors send records into a GreptimeDB table.
type GreptimeRecorder struct {
	client  greptimeClient
	table   string
	timeout time.Duration
}

// NewGreptimeRecorder connects to endpoint ("host" or "host:port").
func NewGreptimeRecorder(endpoint, database, tableName string) (*GreptimeRecorder, error) {
	host, port := endpoint, defaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.NotValidf("greptime endpoint %q", endpoint)
		}
		host, port = h, n
	}
	if tableName == "" {
		tableName = DefaultGreptimeTable
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, errors.Annotate(err, "greptime client")
	}
	return &GreptimeRecorder{client: client, table: tableName, timeout: 10 * time.Second}, nil
}

func (w *GreptimeRecorder) newTable() (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	cols := []struct {
		name string
		tag  bool
		typ  types.ColumnType
	}{
		{"channel", true, types.STRING},
		{"id", false, types.STRING},
		{"count", false, types.INT64},
		{"ok", false, types.BOOLEAN},
		{"elapsed_s", false, types.FLOAT64},
		{"next_delay_s", false, types.FLOAT64},
		{"vals", false, types.STRING},
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

// Record inserts a single send record.
func (w *GreptimeRecorder) Record(s Send) error {
	return w.RecordBatch([]Send{s})
}

// RecordBatch inserts several records in one write.
func (w *GreptimeRecorder) RecordBatch(rows []Send) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := w.newTable()
	if err != nil {
		return errors.Trace(err)
	}
	for _, r := range rows {
		vals, err := json.Marshal(r.Values)
		if err != nil {
			return errors.Trace(err)
		}
		err = tbl.AddRow(r.Channel, r.ID, int64(r.Count), r.OK,
			r.Elapsed.Seconds(), r.NextDelay.Seconds(), string(vals), r.Timestamp)
		if err != nil {
			return errors.Trace(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return errors.Annotatef(err, "greptime write %s", w.table)
	}
	return nil
}
