package bindable_test

import (
	"sync"
	"testing"

	"github.com/okian/localrank/internal/domain/bindable"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBindable(t *testing.T) {
	Convey("Given a bindable int", t, func() {
		b := bindable.New(1)

		Convey("Then it exposes the initial value", func() {
			So(b.Value(), ShouldEqual, 1)
		})

		Convey("When a listener is registered and the value changes", func() {
			var got []bindable.ValueChangedEvent[int]
			unsub := b.OnValueChanged(func(e bindable.ValueChangedEvent[int]) {
				got = append(got, e)
			})
			b.Set(2)
			b.Set(2)
			b.Set(3)

			Convey("Then it is notified once per actual change", func() {
				So(got, ShouldResemble, []bindable.ValueChangedEvent[int]{
					{Old: 1, New: 2},
					{Old: 2, New: 3},
				})
			})

			Convey("And after unsubscribing it hears nothing", func() {
				unsub()
				unsub()
				b.Set(4)
				So(len(got), ShouldEqual, 2)
				So(b.ListenerCount(), ShouldEqual, 0)
			})
		})

		Convey("When several listeners are registered", func() {
			var order []string
			b.OnValueChanged(func(bindable.ValueChangedEvent[int]) { order = append(order, "a") })
			unsubB := b.OnValueChanged(func(bindable.ValueChangedEvent[int]) { order = append(order, "b") })
			b.OnValueChanged(func(bindable.ValueChangedEvent[int]) { order = append(order, "c") })
			unsubB()
			b.Set(10)

			Convey("Then the remaining ones run in registration order", func() {
				So(order, ShouldResemble, []string{"a", "c"})
			})
		})

		Convey("When a listener unsubscribes itself during notification", func() {
			calls := 0
			var unsub func()
			unsub = b.OnValueChanged(func(bindable.ValueChangedEvent[int]) {
				calls++
				unsub()
			})
			b.Set(5)
			b.Set(6)

			Convey("Then it does not deadlock and is removed", func() {
				So(calls, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a bindable pointer", t, func() {
		type cell struct{ n int }
		b := bindable.New[*cell](nil)

		Convey("When set concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					b.Set(&cell{n: i})
				}(i)
			}
			wg.Wait()

			Convey("Then a value from one of the writers is held", func() {
				So(b.Value(), ShouldNotBeNil)
			})
		})
	})
}
