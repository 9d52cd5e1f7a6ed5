package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

func iv(name string, v domain.Value) domain.InstrumentValue {
	return domain.InstrumentValue{Instrument: name, Value: v}
}

func names(ivs []domain.InstrumentValue) []string {
	out := make([]string, len(ivs))
	for i, v := range ivs {
		out[i] = v.Instrument
	}
	return out
}

func sample() []domain.InstrumentValue {
	return []domain.InstrumentValue{
		iv("A", domain.Some(0.02)),
		iv("B", domain.Null),
		iv("C", domain.Some(-0.01)),
		iv("D", domain.Some(0.02)),
		iv("E", domain.Some(math.NaN())),
		iv("F", domain.Some(0.05)),
		iv("G", domain.Some(0)),
	}
}

func TestTop(t *testing.T) {
	assert.Equal(t, []string{"F", "A", "D"}, names(Top(sample(), 3)), "ties keep input order")
	assert.Equal(t, []string{"F", "A", "D", "G", "C"}, names(Top(sample(), 0)), "default length is five")
	assert.Len(t, Top(sample(), 10), 5, "missing values are never ranked")
}

func TestBottom(t *testing.T) {
	assert.Equal(t, []string{"C", "G"}, names(Bottom(sample(), 2)))
	assert.Equal(t, []string{"C", "G", "A", "D", "F"}, names(Bottom(sample(), 5)))
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Top(nil, 3))
	assert.Empty(t, Bottom([]domain.InstrumentValue{iv("X", domain.Null)}, 3))
}
