package hist

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"autotrading/internal/domain"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

func barHeader(res domain.Resolution) []string {
	switch {
	case res.IsDaily():
		return []string{"date", "open", "high", "low", "close", "volume"}
	case res.IsTick():
		return []string{"datetime", "open", "high", "low", "close", "volume", "bid", "ask"}
	default:
		return []string{"datetime", "open", "high", "low", "close", "volume"}
	}
}

func writeBarsCSV(filename string, bars []domain.Bar, res domain.Resolution) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write(barHeader(res))

	for _, b := range bars {
		var row []string
		if res.IsDaily() {
			row = append(row, b.Timestamp.Format(dateLayout))
		} else {
			row = append(row, b.Timestamp.Format(datetimeLayout))
		}
		row = append(row,
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		)
		if res.IsTick() {
			row = append(row,
				strconv.FormatFloat(b.Bid, 'f', -1, 64),
				strconv.FormatFloat(b.Ask, 'f', -1, 64),
			)
		}
		writer.Write(row)
	}
	return writer.Error()
}

func readBarsCSV(filename string, res domain.Resolution) ([]domain.Bar, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	layout := datetimeLayout
	if res.IsDaily() {
		layout = dateLayout
	}

	bars := make([]domain.Bar, 0, len(records)-1)
	for _, rec := range records[1:] {
		b, err := parseBarRecord(rec, layout, res.IsTick())
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filename, err)
		}
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

func parseBarRecord(rec []string, layout string, tick bool) (domain.Bar, error) {
	want := 6
	if tick {
		want = 8
	}
	if len(rec) != want {
		return domain.Bar{}, fmt.Errorf("expected %d columns, got %d", want, len(rec))
	}

	ts, err := time.ParseInLocation(layout, rec[0], time.UTC)
	if err != nil {
		return domain.Bar{}, err
	}
	fields := make([]float64, len(rec)-1)
	for i, s := range rec[1:] {
		fields[i], err = strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Bar{}, err
		}
	}

	b := domain.Bar{
		Timestamp: ts,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}
	if tick {
		b.Bid = fields[5]
		b.Ask = fields[6]
	}
	return b, nil
}

func writeTradesCSV(filename string, trades []domain.TradeTick) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"timestamp", "exchange", "size", "price"})

	for _, t := range trades {
		writer.Write([]string{
			t.Timestamp.Format(datetimeLayout),
			string(t.Exchange),
			strconv.FormatFloat(t.Size, 'f', -1, 64),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
		})
	}
	return writer.Error()
}

func readTradesCSV(filename string) ([]domain.TradeTick, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	trades := make([]domain.TradeTick, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != 4 {
			return nil, fmt.Errorf("parsing %s: expected 4 columns, got %d", filename, len(rec))
		}
		ts, err := time.ParseInLocation(datetimeLayout, rec[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filename, err)
		}
		size, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filename, err)
		}
		price, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filename, err)
		}
		trades = append(trades, domain.TradeTick{
			Timestamp: ts,
			Exchange:  domain.Exchange(rec[1]),
			Size:      size,
			Price:     price,
		})
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].Timestamp.Before(trades[j].Timestamp) })
	return trades, nil
}
