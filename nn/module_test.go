// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/nn"
	"github.com/born-ml/fxtrace/tensor"
)

// TestModuleInterface verifies that concrete types implement Module interface.
func TestModuleInterface(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	tests := []struct {
		name   string
		module nn.Module
		params int
	}{
		{
			name:   "Linear",
			module: nn.NewLinear(10, 5, rng),
			params: 2,
		},
		{
			name: "Sequential",
			module: nn.NewSequential(
				nn.NewLinear(10, 5, rng),
				nn.NewReLU(),
				nn.NewTanh(),
			),
			params: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := dispatch.New(context.Background())
			input, err := tensor.FromSlice(make([]float32, 20), tensor.Shape{2, 10})
			if err != nil {
				t.Fatal(err)
			}

			out, err := tt.module.Forward(c, input)
			if err != nil {
				t.Fatalf("Forward: %v", err)
			}
			if !out.Shape().Equal(tensor.Shape{2, 5}) {
				t.Errorf("output shape = %v, want [2 5]", out.Shape())
			}

			if got := len(tt.module.NamedParameters()); got != tt.params {
				t.Errorf("NamedParameters() returned %d, want %d", got, tt.params)
			}
		})
	}
}
