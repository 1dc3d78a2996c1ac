package core

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		tx   Transaction
		want Classification
	}{
		{
			name: "stored buy",
			tx:   Transaction{EventType: EventBuy},
			want: ClassBuy,
		},
		{
			name: "stored sell",
			tx:   Transaction{EventType: EventSell},
			want: ClassSell,
		},
		{
			name: "legacy record without label",
			tx:   Transaction{},
			want: ClassUnknown,
		},
		{
			name: "stored unknown",
			tx:   Transaction{EventType: EventUnknown},
			want: ClassUnknown,
		},
		{
			name: "priority variant overrides stored sell",
			tx:   Transaction{EventType: EventSell, VariantLabel: PriorityVariantLabel},
			want: ClassBuy,
		},
		{
			name: "priority variant without label",
			tx:   Transaction{VariantLabel: PriorityVariantLabel},
			want: ClassBuy,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.tx); got != tc.want {
				t.Errorf("Classify() = %q, want %q", got, tc.want)
			}
		})
	}
}
