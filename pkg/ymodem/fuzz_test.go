// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ymodem

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 20
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 20
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomSize favours sizes around block boundaries
func randomSize(rng *rand.Rand) int {
	edges := []int{0, 1, 127, 128, 129, 1023, 1024, 1025, 2048}
	if rng.Intn(2) == 0 {
		return edges[rng.Intn(len(edges))]
	}
	return rng.Intn(5000)
}

func TestFuzz_RoundTrip(t *testing.T) {
	rng := newFuzzRng(t)

	for round := 0; round < getFuzzRounds(); round++ {
		files := make([]memFile, 1+rng.Intn(3))
		for i := range files {
			data := make([]byte, randomSize(rng))
			rng.Read(data)
			files[i] = memFile{name: fmt.Sprintf("f%d_%d.bin", round, i), data: data}
		}

		res := runTransfer(t, files)
		require.NoError(t, res.sendErr, "round %d", round)
		require.NoError(t, res.recvErr, "round %d", round)
		require.Len(t, res.sink.files, len(files))

		for i, f := range files {
			got := res.sink.files[i]
			require.Equal(t, f.name, got.name)
			require.Equal(t, len(f.data), len(got.data), "round %d file %d", round, i)
			if len(f.data) > 0 {
				require.Equal(t, f.data, got.data, "round %d file %d", round, i)
			}

			for _, size := range res.blocks[i+1] {
				if len(f.data)%BlockSize1K == 0 {
					require.Equal(t, BlockSize1K, size, "exact multiples use 1K blocks only")
				}
			}
		}
	}
}

func TestFuzz_HeaderParseNeverPanics(t *testing.T) {
	rng := newFuzzRng(t)
	payload := make([]byte, BlockSize128)

	for round := 0; round < getFuzzRounds()*50; round++ {
		rng.Read(payload)
		if rng.Intn(2) == 0 {
			payload[rng.Intn(len(payload))] = 0
			payload[rng.Intn(len(payload))] = ' '
		}
		h, err := ParseHeader(payload)
		if err == nil {
			require.NotEmpty(t, h.Name)
			require.LessOrEqual(t, len(h.Name), MaxNameLength)
		}
	}
}
