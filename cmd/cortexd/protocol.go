package main

import (
	"encoding/json"
	"fmt"
)

// command is one line of caller input over the NDJSON control surface
// (spec §6.3). method names are transport-agnostic per the spec; the stdio
// transport is the only one this binary implements.
type command struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

func decodeCommand(line []byte) (command, error) {
	var c command
	if err := json.Unmarshal(line, &c); err != nil {
		return command{}, fmt.Errorf("decode command: %w", err)
	}
	if c.Method == "" {
		return command{}, fmt.Errorf("decode command: missing method")
	}
	return c, nil
}

// response is one reply line, correlated to its command by ID. Exactly one
// of Result/Error is set.
type response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func okResponse(id string, result interface{}) response {
	return response{ID: id, Result: result}
}

func errResponse(id string, err error) response {
	return response{ID: id, Error: err.Error()}
}

// eventLine is an asynchronous notification, distinguished from a response
// by the absence of an "id" the caller issued (events carry their own
// "type").
type eventLine struct {
	Type        string  `json:"type"`
	From        string  `json:"from,omitempty"`
	To          string  `json:"to,omitempty"`
	Phase       string  `json:"phase,omitempty"`
	CycleID     string  `json:"cycleId,omitempty"`
	CycleNumber int     `json:"cycleNumber,omitempty"`
	Success     bool    `json:"success,omitempty"`
	CostUsd     float64 `json:"costUsd,omitempty"`
	Error       string  `json:"error,omitempty"`
}
