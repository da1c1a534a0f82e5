package vnstat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
)

// vnstat 1.x reports KiB, 2.x reports bytes.
const kib = 1024

type report struct {
	Interfaces  *[]ifaceJSON `json:"interfaces"`
	JSONVersion string       `json:"jsonversion"`
}

type ifaceJSON struct {
	Traffic *trafficJSON `json:"traffic"`
	Updated stampJSON    `json:"updated"`
	Name    string       `json:"name"`
	ID      any          `json:"id"`
}

type trafficJSON struct {
	Total      *pairJSON   `json:"total"`
	FiveMinute []entryJSON `json:"fiveminute"`
	Hour       []entryJSON `json:"hour"`
	Hours      []entryJSON `json:"hours"`
	Day        []entryJSON `json:"day"`
	Days       []entryJSON `json:"days"`
	Month      []entryJSON `json:"month"`
	Months     []entryJSON `json:"months"`
	Year       []entryJSON `json:"year"`
}

type pairJSON struct {
	RX uint64 `json:"rx"`
	TX uint64 `json:"tx"`
}

type dateJSON struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type timeJSON struct {
	Hour    int `json:"hour"`
	Minute  int `json:"minute"`
	Minutes int `json:"minutes"`
}

type stampJSON struct {
	Time      *timeJSON `json:"time"`
	Date      dateJSON  `json:"date"`
	Timestamp int64     `json:"timestamp"`
}

type entryJSON struct {
	Time *timeJSON `json:"time"`
	Date dateJSON  `json:"date"`
	ID   int       `json:"id"`
	RX   uint64    `json:"rx"`
	TX   uint64    `json:"tx"`
}

// Parse decodes `vnstat --json` output. now stamps interfaces whose update time is unknown.
func Parse(data []byte, now time.Time) ([]domain.InterfaceSample, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var r report
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrParse, err)
	}

	var scale uint64
	switch strings.TrimSpace(r.JSONVersion) {
	case "1":
		scale = kib
	case "2":
		scale = 1
	default:
		return nil, fmt.Errorf("%w: unsupported jsonversion %q", domain.ErrParse, r.JSONVersion)
	}
	if r.Interfaces == nil {
		return nil, fmt.Errorf("%w: missing interfaces", domain.ErrParse)
	}

	samples := make([]domain.InterfaceSample, 0, len(*r.Interfaces))
	for i, in := range *r.Interfaces {
		name := in.name()
		if name == "" {
			return nil, fmt.Errorf("%w: interface #%d has no name", domain.ErrParse, i)
		}
		if in.Traffic == nil || in.Traffic.Total == nil {
			return nil, fmt.Errorf("%w: interface %q has no traffic totals", domain.ErrParse, name)
		}
		tr := in.Traffic
		s := domain.InterfaceSample{
			Name:      name,
			RX:        tr.Total.RX * scale,
			TX:        tr.Total.TX * scale,
			Timestamp: in.Updated.at(now),
			Periods:   make(map[domain.Period]domain.Traffic, len(domain.Periods)),
		}
		series := map[domain.Period][]entryJSON{
			domain.FiveMinute: tr.FiveMinute,
			domain.Hour:       pick(tr.Hour, tr.Hours),
			domain.Day:        pick(tr.Day, tr.Days),
			domain.Month:      pick(tr.Month, tr.Months),
			domain.Year:       tr.Year,
		}
		for p, entries := range series {
			// vnstat 1.x keys hourly entries by hour-of-day instead of a time object.
			e, ok := latest(entries, p == domain.Hour && scale == kib)
			if !ok {
				continue
			}
			s.Periods[p] = domain.Traffic{RX: e.RX * scale, TX: e.TX * scale}
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func (in ifaceJSON) name() string {
	if n := strings.TrimSpace(in.Name); n != "" {
		return n
	}
	if id, ok := in.ID.(string); ok {
		return strings.TrimSpace(id)
	}
	return ""
}

func (s stampJSON) at(now time.Time) time.Time {
	if s.Timestamp > 0 {
		return time.Unix(s.Timestamp, 0)
	}
	if s.Date.Year == 0 {
		return now
	}
	var h, m int
	if s.Time != nil {
		h, m = s.Time.Hour, s.Time.minute()
	}
	return time.Date(s.Date.Year, time.Month(max(s.Date.Month, 1)), max(s.Date.Day, 1), h, m, 0, 0, time.Local)
}

func (t *timeJSON) minute() int {
	if t.Minute != 0 {
		return t.Minute
	}
	return t.Minutes
}

func pick(v2, v1 []entryJSON) []entryJSON {
	if len(v2) > 0 {
		return v2
	}
	return v1
}

// latest returns the most recent entry by date and time; later list positions win ties.
func latest(entries []entryJSON, idIsHour bool) (entryJSON, bool) {
	if len(entries) == 0 {
		return entryJSON{}, false
	}
	best, bestKey := entries[0], entries[0].key(idIsHour)
	for _, e := range entries[1:] {
		if k := e.key(idIsHour); k >= bestKey {
			best, bestKey = e, k
		}
	}
	return best, true
}

func (e entryJSON) key(idIsHour bool) int64 {
	var h, m int
	switch {
	case e.Time != nil:
		h, m = e.Time.Hour, e.Time.minute()
	case idIsHour:
		h = e.ID
	}
	return ((((int64(e.Date.Year)*100+int64(e.Date.Month))*100+int64(e.Date.Day))*100+int64(h))*100 + int64(m))
}
