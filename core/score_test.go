package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAccrue(t *testing.T) {
	tests := []struct {
		name   string
		own    string
		weight string
		want   string
	}{
		{name: "first band", own: "50", weight: "1", want: "51"},
		{name: "second band", own: "65", weight: "2", want: "66"},
		{name: "third band", own: "72", weight: "5", want: "73"},
		{name: "fourth band", own: "80", weight: "10", want: "81"},
		{name: "top band", own: "95", weight: "100", want: "96"},
		{name: "split across 60", own: "59.9", weight: "0.7", want: "60.3"},
		{name: "split across 70", own: "69", weight: "12", want: "72"},
		{name: "split across 70 and 80", own: "69", weight: "54", want: "80.2"},
		{name: "exactly reaches boundary", own: "59", weight: "1", want: "60"},
		{name: "capped at max", own: "99.99", weight: "50", want: "100"},
		{name: "already at max", own: "100", weight: "1", want: "100"},
		{name: "below floor uses first rate", own: "40", weight: "5", want: "45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Accrue(d(tt.own), d(tt.weight))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestAccrueBoundaryIsNotUniformRate(t *testing.T) {
	got := Accrue(d("59.9"), d("0.7"))

	uniformLow := d("59.9").Add(d("0.7").Mul(d("1.0")))
	uniformHigh := d("59.9").Add(d("0.7").Mul(d("0.5")))

	assert.True(t, got.Equal(d("60.3")))
	assert.False(t, got.Equal(uniformLow))
	assert.False(t, got.Equal(uniformHigh))
}

func TestAccrueFullClimb(t *testing.T) {
	// 10 + 20 + 50 + 100 + 1000 units from 50 to 100
	assert.True(t, Accrue(OwnScoreFloor, d("1180")).Equal(OwnScoreMax))
	assert.True(t, Accrue(OwnScoreFloor, d("1179")).LessThan(OwnScoreMax))
}

func TestOwnerBonus(t *testing.T) {
	assert.True(t, OwnerBonus(nil).IsZero())
	assert.True(t, OwnerBonus([]decimal.Decimal{d("50"), d("70")}).Equal(d("60")))
	assert.True(t, OwnerBonus([]decimal.Decimal{d("100"), d("100")}).Equal(d("100")))
}

func TestScoreRecordTotal(t *testing.T) {
	rec := NewScoreRecord("0xabc", time.Now())
	assert.True(t, rec.Total().Equal(d("50")))
	assert.Equal(t, SyncStatePending, rec.SyncState)

	rec.OwnScore = d("60.75")
	rec.OwnerBonus = d("55.5")
	assert.True(t, rec.Total().Equal(d("116.25")))
	assert.Equal(t, int64(116), rec.TotalInt())

	rec.OwnScore = d("100")
	rec.OwnerBonus = d("100")
	assert.True(t, rec.Total().Equal(TotalMax))

	rec.OwnScore = d("10")
	rec.OwnerBonus = decimal.Zero
	assert.True(t, rec.Total().Equal(TotalFloor))
}
