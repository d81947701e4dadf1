// Package maintenance runs the sandbox's scheduled jobs.
package maintenance

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"
)

// Sweeper flips overdue loans and reports how many are overdue.
type Sweeper interface {
	Sweep() int
}

// StartOverdueSweep runs s once now and then daily at localTime ("HH:MM") in
// tzName, until ctx is done.
// Call once at startup: maintenance.StartOverdueSweep(ctx, srv, "00:05", "Asia/Ho_Chi_Minh")
func StartOverdueSweep(ctx context.Context, s Sweeper, localTime, tzName string) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.Local
	}
	h, m := ParseClock(localTime)

	runOnce := func() {
		n := s.Sweep()
		log.Printf("[sweep] %d borrows overdue", n)
	}

	go func() {
		runOnce()
		for {
			timer := time.NewTimer(time.Until(NextRun(time.Now().In(loc), h, m)))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				runOnce()
			}
		}
	}()
}

// ParseClock reads "HH:MM", falling back to 00:05 on anything malformed.
func ParseClock(s string) (h, m int) {
	h, m = 0, 5
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return h, m
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return h, m
	}
	return hh, mm
}

// NextRun is the first h:m strictly after now, in now's location.
func NextRun(now time.Time, h, m int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
