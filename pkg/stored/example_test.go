package stored_test

import (
	"errors"
	"fmt"

	"github.com/calvinalkan/slotarena/pkg/stored"
)

func Example() {
	rt := stored.NewRuntime(stored.Options{})
	defer rt.Dispose()

	count := stored.New(rt, 0)

	for range 3 {
		count.UpdateValue(func(n *int) { *n++ })
	}

	fmt.Println(count.Get())
	// Output: 3
}

func ExampleDowncast() {
	rt := stored.NewRuntime(stored.Options{})
	defer rt.Dispose()

	view := stored.NewView[error](rt, errors.New("boom"))

	if _, ok := stored.Downcast[string](view); !ok {
		fmt.Println("not a string")
	}

	msg := stored.With(view, func(err error) string { return err.Error() })
	fmt.Println(msg)
	// Output:
	// not a string
	// boom
}

func ExampleScope_Dispose() {
	rt := stored.NewRuntime(stored.Options{})
	defer rt.Dispose()

	request := rt.Root().Child()
	request.OnCleanup(func() { fmt.Println("request done") })

	body := stored.NewSlice(request, 'h', 'i')

	request.Dispose()

	_, ok := body.TryGetOwned()
	fmt.Println("body readable:", ok)
	// Output:
	// request done
	// body readable: false
}
