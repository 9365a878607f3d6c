package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/Noofbiz/demandgraph/config"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// InfluxSink stores metric vectors in an InfluxDB v2 bucket.
type InfluxSink struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	measurement string
}

// NewInfluxSink connects to InfluxDB and verifies the server is healthy.
func NewInfluxSink(ctx context.Context, cfg config.Influx) (*InfluxSink, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "connect to influxdb at %s", cfg.URL)
	}
	klog.V(1).Infof("influxdb sink ready: %s org=%s bucket=%s", cfg.URL, cfg.Org, cfg.Bucket)
	return &InfluxSink{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: cfg.MeasurementName(),
	}, nil
}

// Write stores v as one point tagged with the run id, split and epoch.
func (s *InfluxSink) Write(ctx context.Context, run, split string, epoch int, v Vector) error {
	p := VectorPoint(s.measurement, run, split, epoch, v, time.Now())
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return errors.Wrapf(err, "write %s metrics for run %s", split, run)
	}
	return nil
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// VectorPoint builds the point written by InfluxSink: six float fields named
// after the vector positions.
func VectorPoint(measurement, run, split string, epoch int, v Vector, ts time.Time) *write.Point {
	fields := make(map[string]interface{}, len(v))
	for i, x := range v {
		fields[Name(i)] = x
	}
	return write.NewPoint(
		measurement,
		map[string]string{
			"run":   run,
			"split": split,
			"epoch": strconv.Itoa(epoch),
		},
		fields,
		ts,
	)
}
