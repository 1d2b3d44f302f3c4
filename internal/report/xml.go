// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"runtime"

	"github.com/ClusterCockpit/parabench/internal/aggregate"
	"github.com/ClusterCockpit/parabench/internal/timing"
)

// xmlReport is the results.xml document shape spec.md §4.9 describes: a
// <Report> root carrying a run timestamp and this host's kernel string,
// holding one <EventList> per record kind, events sorted by
// (label, rank, id) — the order internal/aggregate.Gather already emits.
type xmlReport struct {
	XMLName xml.Name       `xml:"Report"`
	Date    string         `xml:"date,attr"`
	Time    string         `xml:"time,attr"`
	Size    int            `xml:"size,attr"`
	Kernel  string         `xml:"kernel,attr"`
	Lists   []xmlEventList `xml:"EventList"`
}

type xmlEventList struct {
	Type   string     `xml:"type,attr"`
	Events []xmlEvent `xml:"Event"`
}

type xmlEvent struct {
	Rank  int    `xml:"rank,attr"`
	ID    int    `xml:"id,attr"`
	Label string `xml:"label,attr"`

	Walltime   *xmlWalltime   `xml:"Walltime,omitempty"`
	Throughput *xmlThroughput `xml:"Throughput,omitempty"`
	Calltime   *xmlCalltime   `xml:"Calltime,omitempty"`
	Requests   *xmlRequests   `xml:"Requests,omitempty"`
}

type xmlWalltime struct {
	Value float64 `xml:"value,attr"`
}

type xmlThroughput struct {
	Avg float64 `xml:"avg,attr"`
	Min float64 `xml:"min,attr"`
	Max float64 `xml:"max,attr"`
}

type xmlCalltime struct {
	Avg float64 `xml:"avg,attr"`
	Min float64 `xml:"min,attr"`
	Max float64 `xml:"max,attr"`
}

type xmlRequests struct {
	Num   int64   `xml:"num,attr"`
	Time  float64 `xml:"time,attr"`
	IOops float64 `xml:"ioops,attr"`
}

// BuildXML assembles the xmlReport for res. date/timeStr are pre-formatted
// by the caller so the formatting itself stays testable without a clock,
// and worldSize is the fabric's rank count.
func BuildXML(res *aggregate.Result, date, timeStr string, worldSize int) []byte {
	rep := xmlReport{
		Date:   date,
		Time:   timeStr,
		Size:   worldSize,
		Kernel: runtime.GOOS + "/" + runtime.GOARCH,
	}

	ctList := xmlEventList{Type: "CoreTime"}
	for _, e := range res.CoreTimeEvents {
		ctList.Events = append(ctList.Events, xmlEvent{
			Rank: e.Rank, ID: e.ID, Label: e.Label,
			Throughput: &xmlThroughput{
				Avg: e.Accumulated.Throughput(),
				Min: e.MinCore.Throughput(),
				Max: e.MaxCore.Throughput(),
			},
			Calltime: &xmlCalltime{
				Avg: avgCallTime(e),
				Min: e.MinCallTime,
				Max: e.MaxCallTime,
			},
			Requests: &xmlRequests{
				Num:   e.NumCalls,
				Time:  e.Accumulated.Seconds,
				IOops: ioops(e),
			},
		})
	}
	rep.Lists = append(rep.Lists, ctList)

	timeList := xmlEventList{Type: "Time"}
	for _, e := range res.TimeEvents {
		timeList.Events = append(timeList.Events, xmlEvent{
			Rank: e.Rank, ID: e.ID, Label: e.Label,
			Walltime: &xmlWalltime{Value: e.Seconds},
		})
	}
	rep.Lists = append(rep.Lists, timeList)

	out, err := xml.MarshalIndent(rep, "", "  ")
	if err != nil {
		// Marshaling a plain struct of scalars cannot fail; surface a
		// minimal document rather than panicking a benchmark's teardown.
		return []byte(fmt.Sprintf("<Report error=%q/>", err.Error()))
	}
	return append([]byte(xml.Header), out...)
}

func avgCallTime(e timing.CoreTimeEvent) float64 {
	if e.NumCalls == 0 {
		return 0
	}
	return e.Accumulated.Seconds / float64(e.NumCalls)
}

// ioops is I/O operations per second over the event's accumulated core
// time.
func ioops(e timing.CoreTimeEvent) float64 {
	if e.Accumulated.Seconds <= 0 {
		return 0
	}
	return float64(e.NumCalls) / e.Accumulated.Seconds
}

// WriteXMLFile writes the marshaled report to path.
func WriteXMLFile(path string, res *aggregate.Result, date, timeStr string, worldSize int) error {
	data := BuildXML(res, date, timeStr, worldSize)
	return os.WriteFile(path, data, 0o644)
}
