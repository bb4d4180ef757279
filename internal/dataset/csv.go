package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"datanerd/internal/logging"

	"go.uber.org/zap"
)

// ReadCSV parses CSV bytes into a frame. The first record is the header.
// Short records pad with nulls; column kinds are inferred from the data.
func ReadCSV(data []byte) (*Frame, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, record)
	}

	frame, err := New(header, rows)
	if err != nil {
		return nil, err
	}

	logging.Get(logging.CategoryDataset).Info("csv loaded",
		zap.Int("rows", frame.NumRows()),
		zap.Int("cols", frame.NumCols()))
	return frame, nil
}
