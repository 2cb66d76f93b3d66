package crawl

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPacerFirstWaitDoesNotBlock(t *testing.T) {
	p := NewPacer(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := p.Pace(ctx); err != nil {
		t.Fatalf("first Pace() should be immediate, got %v", err)
	}
}

func TestPacerEnforcesInterval(t *testing.T) {
	interval := 30 * time.Millisecond
	p := NewPacer(interval)
	ctx := context.Background()

	if err := p.Pace(ctx); err != nil {
		t.Fatalf("Pace() error = %v", err)
	}
	start := time.Now()
	if err := p.Pace(ctx); err != nil {
		t.Fatalf("Pace() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < interval-5*time.Millisecond {
		t.Errorf("second Pace() returned after %v, want at least %v", elapsed, interval)
	}
}

func TestPacerRespectsCancellation(t *testing.T) {
	p := NewPacer(time.Hour)
	ctx := context.Background()
	if err := p.Pace(ctx); err != nil {
		t.Fatalf("Pace() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Pace(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled wait")
	}
	if errors.Is(err, context.Canceled) {
		// rate.Limiter wraps deadline errors in its own type; any non-nil
		// error on cancellation is acceptable.
		return
	}
}

func TestPacerDefaultsInterval(t *testing.T) {
	p := NewPacer(0)
	if p == nil {
		t.Fatal("NewPacer(0) returned nil")
	}
	p = NewPacer(-time.Second)
	if p == nil {
		t.Fatal("NewPacer(negative) returned nil")
	}
}
