package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Modality is the kind of exercise, which decides the fields a set carries.
type Modality string

const (
	ModalityWeight Modality = "WEIGHT"
	ModalityCardio Modality = "CARDIO"
)

// SetType tags a recorded set. Empty or unknown values count as NORMAL.
type SetType string

const (
	SetNormal  SetType = "NORMAL"
	SetWarmup  SetType = "WARMUP"
	SetFailure SetType = "FAILURE"
	SetDropset SetType = "DROPSET"
	SetPain    SetType = "PAIN"
)

// Normalize maps empty and unrecognised tags to SetNormal.
func (t SetType) Normalize() SetType {
	switch t {
	case SetWarmup, SetFailure, SetDropset, SetPain:
		return t
	default:
		return SetNormal
	}
}

// Num is a numeric set field that may be left blank. A blank Num is
// serialised as "" to match what the client sends for untouched inputs.
type Num struct {
	v  float64
	ok bool
}

// NumOf returns a filled Num. NaN and infinities yield a blank Num.
func NumOf(v float64) *Num {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &Num{}
	}
	return &Num{v: v, ok: true}
}

// Blank returns an empty Num.
func Blank() *Num { return &Num{} }

// Value reports the number and whether one is present. Safe on nil.
func (n *Num) Value() (float64, bool) {
	if n == nil || !n.ok {
		return 0, false
	}
	return n.v, true
}

// Float returns the value or 0.
func (n *Num) Float() float64 {
	v, _ := n.Value()
	return v
}

// Clone returns an independent copy, keeping nil as nil.
func (n *Num) Clone() *Num {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

func (n Num) MarshalJSON() ([]byte, error) {
	if !n.ok {
		return []byte(`""`), nil
	}
	return json.Marshal(n.v)
}

// UnmarshalJSON accepts numbers, numeric strings, "" and null.
func (n *Num) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = Num{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = Num{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid numeric value %q", s)
		}
		*n = Num{v: v, ok: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid numeric value %s", data)
	}
	*n = Num{v: v, ok: true}
	return nil
}

// WorkoutSet is one set of an exercise within a session. Weight sets carry
// Weight/Reps, cardio sets carry Duration/Distance/Calories; fields outside
// a set's shape are nil and omitted from JSON.
type WorkoutSet struct {
	Weight    *Num    `json:"weight,omitempty"`
	Reps      *Num    `json:"reps,omitempty"`
	Duration  *Num    `json:"duration,omitempty"`
	Distance  *Num    `json:"distance,omitempty"`
	Calories  *Num    `json:"calories,omitempty"`
	Completed bool    `json:"completed"`
	Type      SetType `json:"type,omitempty"`
}
