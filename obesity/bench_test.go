package obesity

import (
	"fmt"
	"testing"

	"github.com/delvitaw/obesity/dataset"
)

func BenchmarkPredict(b *testing.B) {
	p, err := NewPredictor(trained.Artifact, nil)
	if err != nil {
		b.Fatal(err)
	}
	s := DefaultSample()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Predict(s); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPipelineFit(b *testing.B) {
	for _, rows := range []int{700, 2100} {
		b.Run(fmt.Sprintf("Rows_%d", rows), func(b *testing.B) {
			f := survey(rows, 1)
			if _, err := AddBMI(f); err != nil {
				b.Fatal(err)
			}
			y, _ := f.Strings(ColTarget)
			X, _ := f.Drop(ColTarget)
			num, cat := X.NamesOfKind(dataset.Numeric), X.NamesOfKind(dataset.Categorical)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := NewPipeline(num, cat, 42).Fit(X, y); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
