package model_test

import (
	"fmt"

	"github.com/delvitaw/obesity/core/model"
)

// ExampleBaseEstimator demonstrates BaseEstimator state management
func ExampleBaseEstimator() {
	estimator := &model.BaseEstimator{}

	fmt.Printf("Initially fitted: %t\n", estimator.IsFitted())

	estimator.SetFitted()
	fmt.Printf("After SetFitted: %t\n", estimator.IsFitted())

	estimator.Reset()
	fmt.Printf("After Reset: %t\n", estimator.IsFitted())

	// Output: Initially fitted: false
	// After SetFitted: true
	// After Reset: false
}

// ExampleBaseEstimator_Clone shows that clones start unfitted but keep
// hyperparameters.
func ExampleBaseEstimator_Clone() {
	estimator := &model.BaseEstimator{ModelType: "StandardScaler"}
	_ = estimator.SetParams(map[string]interface{}{"with_mean": true})
	estimator.SetFitted()

	clone := estimator.Clone()
	fmt.Println(clone.IsFitted(), clone.ModelType, clone.GetParams(false)["with_mean"])

	// Output: false StandardScaler true
}
