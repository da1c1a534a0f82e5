// Package domain holds the exporter's core value types.
package domain

import "time"

// Direction names one side of an interface's traffic.
type Direction string

const (
	// RX is received traffic.
	RX Direction = "rx"
	// TX is transmitted traffic.
	TX Direction = "tx"
)

// Period names a vnstat traffic series.
type Period string

const (
	FiveMinute Period = "fiveminute"
	Hour       Period = "hour"
	Day        Period = "day"
	Month      Period = "month"
	Year       Period = "year"
)

// Periods lists every period in exposition order.
var Periods = []Period{FiveMinute, Hour, Day, Month, Year}

// Traffic is a byte count pair for one interface.
type Traffic struct {
	RX uint64
	TX uint64
}

// InterfaceSample is one interface's counters as read during a single tick.
// RX and TX are lifetime totals reported by the source. Periods carries the
// latest entry of each series the source knows about and may be nil.
type InterfaceSample struct {
	Timestamp time.Time
	Periods   map[Period]Traffic
	Name      string
	RX        uint64
	TX        uint64
}

// InterfaceState is the persisted view of an interface's exported totals.
type InterfaceState struct {
	Updated time.Time `json:"updated"`
	Name    string    `json:"name"`
	RX      uint64    `json:"rx"`
	TX      uint64    `json:"tx"`
}
