package latest

import (
	"context"
	"reflect"
	"testing"

	"github.com/KNBS-StatsChat/statschat-ke/index"
)

type fakeKeyLister struct {
	keys []index.FragmentKey
}

func (f fakeKeyLister) ListKeys(ctx context.Context) ([]index.FragmentKey, error) {
	return f.keys, nil
}

func TestFindFragmentKeys(t *testing.T) {
	lister := fakeKeyLister{keys: []index.FragmentKey{
		{Key: "k1", Source: "data/json_split/economic-survey-2024_0.json"},
		{Key: "k2", Source: "data/json_split/economic-survey-2024_1.json"},
		{Key: "k3", Source: "data/json_split/population-census_0.json"},
	}}

	tests := []struct {
		name  string
		names []string
		want  []string
	}{
		{
			name:  "matches every fragment of a publication",
			names: []string{"economic-survey-2024.json"},
			want:  []string{"k1", "k2"},
		},
		{
			name:  "no match yields empty non-nil result",
			names: []string{"unknown-series.json"},
			want:  []string{},
		},
		{
			name:  "overlapping names may repeat keys",
			names: []string{"economic-survey-2024.json", "economic-survey-2024_0.json"},
			want:  []string{"k1", "k2", "k1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindFragmentKeys(context.Background(), lister, tt.names, 60)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindFragmentKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}
