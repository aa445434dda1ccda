// Package export writes imported activities to columnar files for offline analysis.
package export

import (
	"fmt"
	"math"
	"time"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/sstent/tracksync-go/internal/data"
	"github.com/sstent/tracksync-go/internal/models"
)

// pointRow is one point. Channels the point does not carry are NaN.
type pointRow struct {
	TSUTCISO         string  `parquet:"name=ts_utc_iso, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ElapsedS         float64 `parquet:"name=elapsed_s, type=DOUBLE"`
	LapIndex         int64   `parquet:"name=lap_index, type=INT64"`
	HeartRate        float64 `parquet:"name=heart_rate_bpm, type=DOUBLE"`
	Latitude         float64 `parquet:"name=latitude_deg, type=DOUBLE"`
	Longitude        float64 `parquet:"name=longitude_deg, type=DOUBLE"`
	Altitude         float64 `parquet:"name=altitude_m, type=DOUBLE"`
	GPSAltitude      float64 `parquet:"name=gps_altitude_m, type=DOUBLE"`
	Distance         float64 `parquet:"name=distance_m, type=DOUBLE"`
	Speed            float64 `parquet:"name=speed_mps, type=DOUBLE"`
	VerticalSpeed    float64 `parquet:"name=vertical_speed_mps, type=DOUBLE"`
	Cadence          float64 `parquet:"name=cadence_rpm, type=DOUBLE"`
	Power            float64 `parquet:"name=power_w, type=DOUBLE"`
	Temperature      float64 `parquet:"name=temperature_c, type=DOUBLE"`
	AbsolutePressure float64 `parquet:"name=abs_pressure_kpa, type=DOUBLE"`
	SeaLevelPressure float64 `parquet:"name=sea_level_pressure_kpa, type=DOUBLE"`
}

// PointsParquet encodes the activity's points as a snappy-compressed Parquet file.
func PointsParquet(a *models.Activity) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writePoints(fw, a); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

// WritePointsParquet writes the same file as PointsParquet to path.
func WritePointsParquet(path string, a *models.Activity) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writePoints(fw, a); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}

func writePoints(fw source.ParquetFile, a *models.Activity) error {
	pw, err := writer.NewParquetWriter(fw, new(pointRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	lap := 0
	for _, p := range a.Points {
		for lap < len(a.Laps) && !p.Date.Before(a.Laps[lap].EndDate) {
			lap++
		}
		lapIndex := int64(-1)
		if lap < len(a.Laps) && a.Laps[lap].Contains(p.Date) {
			lapIndex = int64(lap)
		}
		if err := pw.Write(newPointRow(a.StartDate, lapIndex, p)); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}

func newPointRow(start time.Time, lapIndex int64, p *models.Point) pointRow {
	v := func(t data.Type) float64 {
		if f, ok := p.Value(t); ok {
			return f
		}
		return math.NaN()
	}
	return pointRow{
		TSUTCISO:         p.Date.UTC().Format(time.RFC3339Nano),
		ElapsedS:         p.Date.Sub(start).Seconds(),
		LapIndex:         lapIndex,
		HeartRate:        v(data.HeartRate),
		Latitude:         v(data.Latitude),
		Longitude:        v(data.Longitude),
		Altitude:         v(data.Altitude),
		GPSAltitude:      v(data.GPSAltitude),
		Distance:         v(data.Distance),
		Speed:            v(data.Speed),
		VerticalSpeed:    v(data.VerticalSpeed),
		Cadence:          v(data.Cadence),
		Power:            v(data.Power),
		Temperature:      v(data.Temperature),
		AbsolutePressure: v(data.AbsolutePressure),
		SeaLevelPressure: v(data.SeaLevelPressure),
	}
}
