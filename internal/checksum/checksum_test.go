package checksum

import (
	"testing"
	"time"
)

func TestSum_Stable(t *testing.T) {
	got := Sum([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestQuestion_ChangesWithContent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	base := Question("SQL Injection 방어 방법", "body", []int64{1, 2}, at)

	if Question("SQL Injection 방어 방법", "body", []int64{1, 2}, at) != base {
		t.Error("same input should yield the same checksum")
	}
	for name, other := range map[string]string{
		"title":     Question("SQL Injection 방어", "body", []int64{1, 2}, at),
		"body":      Question("SQL Injection 방어 방법", "body!", []int64{1, 2}, at),
		"tag order": Question("SQL Injection 방어 방법", "body", []int64{2, 1}, at),
		"updated":   Question("SQL Injection 방어 방법", "body", []int64{1, 2}, at.Add(time.Nanosecond)),
	} {
		if other == base {
			t.Errorf("%s change did not alter checksum", name)
		}
	}
}

func TestQuestion_FieldBoundaries(t *testing.T) {
	at := time.Unix(0, 0)
	if Question("ab", "c", nil, at) == Question("a", "bc", nil, at) {
		t.Error("moving bytes between fields should change the checksum")
	}
}
