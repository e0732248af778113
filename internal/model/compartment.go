package model

import (
	"fmt"
	"strings"
)

// Compartment is the SIR state of a single agent.
type Compartment uint8

const (
	Susceptible Compartment = iota
	Infected
	Recovered
)

func (c Compartment) String() string {
	switch c {
	case Susceptible:
		return "S"
	case Infected:
		return "I"
	case Recovered:
		return "R"
	default:
		return fmt.Sprintf("Compartment(%d)", uint8(c))
	}
}

// ParseCompartment accepts the single-letter form or the full name.
func ParseCompartment(s string) (Compartment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "susceptible":
		return Susceptible, nil
	case "i", "infected":
		return Infected, nil
	case "r", "recovered":
		return Recovered, nil
	default:
		return 0, fmt.Errorf("unknown compartment: %q", s)
	}
}

// CanTransition reports whether from -> to is allowed by the S -> I -> R order.
// Staying in place is always allowed.
func CanTransition(from, to Compartment) bool {
	if from == to {
		return true
	}
	return to == from+1 && to <= Recovered
}

// Counts is one (S, I, R) tuple.
type Counts struct {
	S int `json:"s"`
	I int `json:"i"`
	R int `json:"r"`
}

func (c Counts) Total() int {
	return c.S + c.I + c.R
}

func (c *Counts) Add(comp Compartment) {
	switch comp {
	case Susceptible:
		c.S++
	case Infected:
		c.I++
	case Recovered:
		c.R++
	}
}

// Point is a mean (S, I, R) tuple averaged over Monte Carlo runs.
type Point struct {
	S float64 `json:"s"`
	I float64 `json:"i"`
	R float64 `json:"r"`
}

func (p Point) Total() float64 {
	return p.S + p.I + p.R
}
