package main

import (
	"encoding/json"

	"github.com/tidwall/pretty"

	"github.com/matthieu-m/storage/heapstore"
)

type report struct {
	Backend      string           `json:"backend"`
	Capabilities string           `json:"capabilities"`
	Vec          *vecReport       `json:"vec"`
	SkipList     *listReport      `json:"skiplist,omitempty"`
	Heap         *heapstore.Stats `json:"heap,omitempty"`
	BumpUsed     int              `json:"bump_used,omitempty"`
	Errors       []string         `json:"errors,omitempty"`
}

type vecReport struct {
	Threads  int    `json:"threads"`
	Capacity int    `json:"capacity"`
	Len      int    `json:"len"`
	Rejected int    `json:"rejected"`
	Elapsed  string `json:"elapsed"`
}

type listReport struct {
	Inserts   int    `json:"inserts"`
	Replaced  int    `json:"replaced"`
	Missing   int    `json:"missing"`
	Len       int    `json:"len"`
	Height    int    `json:"height"`
	Histogram []int  `json:"links_histogram"`
	Elapsed   string `json:"elapsed"`
}

func (r *report) render() ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions(raw, &pretty.Options{Width: 80, Indent: "  ", SortKeys: false}), nil
}
