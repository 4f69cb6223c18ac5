package imgedit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name                     string
		srcW, srcH, destW, destH int
		want                     CropPlan
		wantOK                   bool
	}{
		{
			name: "landscape to smaller landscape",
			srcW: 800, srcH: 600, destW: 300, destH: 200,
			want:   CropPlan{SrcX: 0, SrcY: 33, DestW: 300, DestH: 200, SrcW: 800, SrcH: 533},
			wantOK: true,
		},
		{
			name: "smaller in both dimensions",
			srcW: 100, srcH: 50, destW: 300, destH: 200,
			wantOK: false,
		},
		{
			name: "portrait to square",
			srcW: 600, srcH: 800, destW: 100, destH: 100,
			want:   CropPlan{SrcX: 0, SrcY: 100, DestW: 100, DestH: 100, SrcW: 600, SrcH: 600},
			wantOK: true,
		},
		{
			name: "wide to square",
			srcW: 1000, srcH: 100, destW: 50, destH: 50,
			want:   CropPlan{SrcX: 450, SrcY: 0, DestW: 50, DestH: 50, SrcW: 100, SrcH: 100},
			wantOK: true,
		},
		{
			name: "same size",
			srcW: 300, srcH: 200, destW: 300, destH: 200,
			want:   CropPlan{DestW: 300, DestH: 200, SrcW: 300, SrcH: 200},
			wantOK: true,
		},
		{
			name: "narrower than target by one pixel",
			srcW: 299, srcH: 600, destW: 300, destH: 200,
			want:   CropPlan{SrcX: 0, SrcY: 200, DestW: 300, DestH: 200, SrcW: 299, SrcH: 200},
			wantOK: true,
		},
		{
			name: "height derived from aspect ratio",
			srcW: 800, srcH: 600, destW: 300, destH: 0,
			want:   CropPlan{DestW: 300, DestH: 225, SrcW: 800, SrcH: 600},
			wantOK: true,
		},
		{
			name: "width derived from aspect ratio",
			srcW: 800, srcH: 600, destW: 0, destH: 150,
			want:   CropPlan{DestW: 200, DestH: 150, SrcW: 800, SrcH: 600},
			wantOK: true,
		},
		{
			name: "no target dimension",
			srcW: 800, srcH: 600,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Compute(tt.srcW, tt.srcH, tt.destW, tt.destH)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

var planSizes = []int{1, 2, 3, 7, 50, 99, 100, 101, 199, 200, 201, 333, 600, 800, 1024}

func TestComputeProperties(t *testing.T) {
	for _, srcW := range planSizes {
		for _, srcH := range planSizes {
			for _, destW := range planSizes {
				for _, destH := range append([]int{0}, planSizes...) {
					plan, ok := Compute(srcW, srcH, destW, destH)

					again, okAgain := Compute(srcW, srcH, destW, destH)
					require.Equal(t, ok, okAgain)
					require.Equal(t, plan, again)

					if srcW < destW && srcH < destH {
						require.False(t, ok, "%dx%d -> %dx%d", srcW, srcH, destW, destH)
						continue
					}
					require.True(t, ok, "%dx%d -> %dx%d", srcW, srcH, destW, destH)

					require.Zero(t, plan.DestX)
					require.Zero(t, plan.DestY)
					require.GreaterOrEqual(t, plan.SrcX, 0)
					require.GreaterOrEqual(t, plan.SrcY, 0)
					require.Positive(t, plan.SrcW)
					require.Positive(t, plan.SrcH)
					require.Positive(t, plan.DestW)
					require.Positive(t, plan.DestH)
					require.LessOrEqual(t, plan.SrcX+plan.SrcW, srcW, "%dx%d -> %dx%d: %+v", srcW, srcH, destW, destH, plan)
					require.LessOrEqual(t, plan.SrcY+plan.SrcH, srcH, "%dx%d -> %dx%d: %+v", srcW, srcH, destW, destH, plan)

					if destH > 0 && srcW >= destW && srcH >= destH {
						require.Equal(t, destW, plan.DestW)
						require.Equal(t, destH, plan.DestH)
					}
				}
			}
		}
	}
}

func TestFitPlan(t *testing.T) {
	plan, ok := FitPlan(800, 600, 300, 300)
	require.True(t, ok)
	assert.Equal(t, CropPlan{DestW: 300, DestH: 225, SrcW: 800, SrcH: 600}, plan)

	plan, ok = FitPlan(1000, 10, 10, 10)
	require.True(t, ok)
	assert.Equal(t, CropPlan{DestW: 10, DestH: 1, SrcW: 1000, SrcH: 10}, plan)

	_, ok = FitPlan(100, 50, 300, 200)
	assert.False(t, ok)
}

func TestStretchPlan(t *testing.T) {
	plan, ok := StretchPlan(800, 600, 300, 200)
	require.True(t, ok)
	assert.Equal(t, CropPlan{DestW: 300, DestH: 200, SrcW: 800, SrcH: 600}, plan)

	plan, ok = StretchPlan(100, 50, 300, 200)
	require.True(t, ok)
	assert.Equal(t, CropPlan{DestW: 300, DestH: 200, SrcW: 100, SrcH: 50}, plan)

	_, ok = StretchPlan(300, 200, 300, 200)
	assert.False(t, ok)
}
