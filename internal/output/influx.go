package output

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/probe-agent/internal/bus"
	"github.com/probe-agent/internal/digest"
)

// InfluxOutput writes each sample as its own series, named after the metric
// key, with a single "value" field at millisecond precision. A Result's
// whole sample set is submitted as one batch.
type InfluxOutput struct {
	UseRawAsFallback bool
	AlwaysWriteRaw   bool

	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxOutput connects to an InfluxDB 1.x endpoint. Credentials map
// onto the client's v1 compatibility mode: "user:pass" as the token and
// the database name as the bucket.
func NewInfluxOutput(url, database, username, password string, useRawAsFallback, alwaysWriteRaw bool) *InfluxOutput {
	token := ""
	if username != "" {
		token = username + ":" + password
	}
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetPrecision(time.Millisecond))
	return &InfluxOutput{
		UseRawAsFallback: useRawAsFallback,
		AlwaysWriteRaw:   alwaysWriteRaw,
		client:           client,
		writeAPI:         client.WriteAPIBlocking("", database+"/"),
	}
}

func (o *InfluxOutput) Name() string { return "influxdb" }

// Prepare does nothing; the client connects lazily on first write.
func (o *InfluxOutput) Prepare() error { return nil }

func (o *InfluxOutput) Run(sub *bus.Subscriber) {
	defer o.client.Close()
	consume(sub, o.Name(), o.persist)
}

func (o *InfluxOutput) persist(res digest.Result) error {
	ctx := context.Background()
	if (len(res.Values) == 0 && o.UseRawAsFallback) || o.AlwaysWriteRaw {
		p := influxdb2.NewPoint(res.Key+".raw", nil,
			map[string]interface{}{"value": res.Raw}, res.Time)
		if err := o.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	if len(res.Values) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(res.Values))
	for key, value := range res.Values {
		points = append(points, influxdb2.NewPoint(key, nil,
			map[string]interface{}{"value": value}, res.Time))
	}
	return o.writeAPI.WritePoint(ctx, points...)
}
