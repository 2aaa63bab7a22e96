package dto

import "time"

type ProbeRequest struct {
	Host            string
	Port            int
	Username        string
	Password        string
	ConnectTimeout  time.Duration
	GreetingTimeout time.Duration
}

type ProbeResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
}
