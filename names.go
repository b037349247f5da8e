/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	maxNames      = 500
	maxNameLength = 80
)

var (
	ErrEmptyName       = errors.New("name must not be empty")
	ErrNameTooLong     = fmt.Errorf("name must be at most %d characters", maxNameLength)
	ErrDuplicateName   = errors.New("name already on the wheel")
	ErrTooManyNames    = fmt.Errorf("wheel holds at most %d names", maxNames)
	ErrIndexOutOfRange = errors.New("no name at that position")
	ErrListLocked      = errors.New("names cannot change while the wheel is spinning")
)

// NameList is the ordered set of display strings on a wheel.
type NameList struct {
	names []string
}

func newNameList() *NameList {
	return &NameList{names: []string{}}
}

func normalizeName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")

	switch {
	case name == "":
		return "", ErrEmptyName
	case utf8.RuneCountInString(name) > maxNameLength:
		return "", ErrNameTooLong
	}

	return name, nil
}

// splitNames breaks pasted text into one candidate per line, dropping blanks.
func splitNames(text string) []string {
	var out []string
	for line := range strings.Lines(text) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (l *NameList) Len() int { return len(l.names) }

// Names returns a copy of the list.
func (l *NameList) Names() []string { return slices.Clone(l.names) }

func (l *NameList) Contains(name string) bool {
	return slices.Contains(l.names, name)
}

func (l *NameList) checkIndex(i int) error {
	if i < 0 || i >= len(l.names) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return nil
}

// Add appends a single name.
func (l *NameList) Add(name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	if l.Contains(name) {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if len(l.names) >= maxNames {
		return ErrTooManyNames
	}

	l.names = append(l.names, name)

	return nil
}

// AddMany appends every name in order, skipping duplicates. It returns how
// many were added and the first error that stopped or skipped an entry.
func (l *NameList) AddMany(names []string) (int, error) {
	var first error
	added := 0

	for _, name := range names {
		err := l.Add(name)
		switch {
		case err == nil:
			added++
		case errors.Is(err, ErrTooManyNames):
			return added, err
		case first == nil:
			first = err
		}
	}

	if added == 0 && first == nil {
		first = ErrEmptyName
	}

	return added, first
}

// Remove deletes the name at index i and returns it.
func (l *NameList) Remove(i int) (string, error) {
	if err := l.checkIndex(i); err != nil {
		return "", err
	}

	name := l.names[i]
	l.names = slices.Delete(l.names, i, i+1)

	return name, nil
}

// Rename replaces the name at index i.
func (l *NameList) Rename(i int, name string) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}

	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	if name == l.names[i] {
		return nil
	}
	if l.Contains(name) {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	l.names[i] = name

	return nil
}

// Move takes the name at from and reinserts it at to, shifting the names
// in between.
func (l *NameList) Move(from, to int) error {
	if err := l.checkIndex(from); err != nil {
		return err
	}
	if err := l.checkIndex(to); err != nil {
		return err
	}

	name := l.names[from]
	l.names = slices.Delete(l.names, from, from+1)
	l.names = slices.Insert(l.names, to, name)

	return nil
}

// Shuffle randomizes the order.
func (l *NameList) Shuffle() {
	rand.Shuffle(len(l.names), func(i, j int) {
		l.names[i], l.names[j] = l.names[j], l.names[i]
	})
}

// Sort orders names case-insensitively.
func (l *NameList) Sort() {
	slices.SortStableFunc(l.names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
}

func (l *NameList) Clear() {
	l.names = l.names[:0]
}
