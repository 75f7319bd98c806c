// Command fastipc-bench exercises NamedMutex and NamedSemaphore under
// contention, the way a developer would smoke-test a new build of the
// library outside of go test — pick a mode, a worker count, and watch it
// go. It is not part of the library's public contract (spec.md §6 "No CLI,
// no network protocol" scopes the package itself, not this demo binary).
package main

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/integrii/flaggy"

	"github.com/BlindedShooter/fastipc-go/pkg/config"
	"github.com/BlindedShooter/fastipc-go/pkg/fastipc"
	"github.com/BlindedShooter/fastipc-go/pkg/utils"
)

var (
	mode       = "mutex"
	name       = ""
	workers    = 4
	iterations = 1000
	permits    = 1
	debugFlag  = false
)

func main() {
	flaggy.SetName("fastipc-bench")
	flaggy.SetDescription("Exercise NamedMutex / NamedSemaphore under goroutine contention")
	flaggy.String(&mode, "m", "mode", "mutex or semaphore")
	flaggy.String(&name, "n", "name", "primitive name (random per run if empty)")
	flaggy.Int(&workers, "w", "workers", "number of concurrent goroutines")
	flaggy.Int(&iterations, "i", "iterations", "acquire/release cycles per worker")
	flaggy.Int(&permits, "p", "permits", "initial semaphore permits (semaphore mode only)")
	flaggy.Bool(&debugFlag, "d", "debug", "verbose close-protocol logging")
	flaggy.Parse()

	if name == "" {
		name = "bench-" + uuid.NewString()
	}

	opts := config.Default()
	opts.Debug = debugFlag

	var err error
	switch mode {
	case "mutex":
		err = runMutexBench(name, opts)
	case "semaphore":
		err = runSemaphoreBench(name, opts)
	default:
		err = fmt.Errorf("unknown mode %q, want mutex or semaphore", mode)
	}

	if err != nil {
		wrapped := errors.Wrap(err, 0)
		log.Fatalf("%s\n\n%s", utils.ColoredString("fastipc-bench failed", color.FgRed), wrapped.ErrorStack())
	}
}

func runMutexBench(name string, opts config.Options) error {
	m, err := fastipc.NewNamedMutex(name, opts)
	if err != nil {
		return err
	}
	defer m.Close()

	var counter int
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				m.Acquire()
				counter++
				m.Release()
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	want := workers * iterations
	status := utils.ColoredString("ok", color.FgGreen)
	if counter != want {
		status = utils.ColoredString(fmt.Sprintf("MISMATCH got %d want %d", counter, want), color.FgRed)
	}
	fmt.Printf("mutex  %s  workers=%d iterations=%d elapsed=%s rate=%.0f/s participants=%d\n",
		status, workers, iterations, elapsed, float64(want)/elapsed.Seconds(), m.ParticipantCount())
	return nil
}

func runSemaphoreBench(name string, opts config.Options) error {
	s, err := fastipc.NewNamedSemaphore(name, uint32(permits), opts)
	if err != nil {
		return err
	}
	defer s.Close()

	var completed int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if !s.Wait(true, 5*time.Second) {
					continue
				}
				mu.Lock()
				completed++
				mu.Unlock()
				s.Post1()
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("sema   %s  workers=%d iterations=%d elapsed=%s rate=%.0f/s value=%d participants=%d\n",
		utils.ColoredString("ok", color.FgGreen), workers, iterations, elapsed,
		float64(completed)/elapsed.Seconds(), s.Value(), s.ParticipantCount())
	return nil
}

func init() {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}
