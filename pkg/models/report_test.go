package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLossReportAddAndScale(t *testing.T) {
	a := LossReport{DAdv: 1, R1: 2, GAdv: 3, Path: 4, PathLengthMean: 5, MeanPathLength: 6}
	b := LossReport{DAdv: 1, R1: 1, GAdv: 1, Path: 1, PathLengthMean: 1, MeanPathLength: 1}

	a.Add(b)
	a.Scale(0.5)

	assert.Equal(t, [6]float64{1, 1.5, 2, 2.5, 3, 3.5}, a.Values())
}

func TestLossReportFinite(t *testing.T) {
	assert.True(t, LossReport{}.Finite())
	assert.False(t, LossReport{R1: math.NaN()}.Finite())
	assert.False(t, LossReport{Path: math.Inf(1)}.Finite())
}
