// Package domain contains entities without transport or lifecycle logic, just meta-data.
package domain

import (
	"errors"
	"strings"
)

const MaxUserIDLen = 64

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

// UserID is the opaque identity handed to the hub by the authentication layer.
type UserID string

// ParseUserID trims and checks an externally supplied identity.
func ParseUserID(raw string) (UserID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(id), nil
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// UniqueUsers drops empty ids and duplicates, keeping first-seen order.
func UniqueUsers(ids []UserID) []UserID {
	seen := make(map[UserID]struct{}, len(ids))
	out := make([]UserID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ContainsUser reports whether id is in ids.
func ContainsUser(ids []UserID, id UserID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// WithoutUser returns ids minus every occurrence of id.
func WithoutUser(ids []UserID, id UserID) []UserID {
	out := make([]UserID, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
