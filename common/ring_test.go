package common

import (
	"reflect"
	"sync"
	"testing"
)

func TestRingBuffer_Scan(t *testing.T) {
	rb := NewRingBuffer[int](3)
	for i := 1; i <= 4; i++ {
		rb.Add(i)
	}
	expected := []int{2, 3, 4}
	var actual []int
	rb.Scan(func(in int) bool {
		actual = append(actual, in)
		return true
	})
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("Expected %v, but got %v", expected, actual)
	}

	actual = actual[:0]
	rb.Scan(func(in int) bool {
		actual = append(actual, in)
		return len(actual) < 2
	})
	if len(actual) != 2 {
		t.Errorf("Expected scan to stop after 2, got %v", actual)
	}
}

func TestRingBuffer_Last(t *testing.T) {
	rb := NewRingBuffer[int](3)
	if _, ok := rb.Last(); ok {
		t.Fatal("Expected empty buffer to have no last element")
	}
	for _, c := range []struct {
		add  []int
		want int
	}{
		{[]int{1, 2, 3}, 3},
		{[]int{4, 5, 6}, 6},
		{[]int{7, 8}, 8},
	} {
		for _, v := range c.add {
			rb.Add(v)
		}
		got, ok := rb.Last()
		if !ok || got != c.want {
			t.Errorf("Expected %d, but got %d", c.want, got)
		}
	}
}

func TestRingBuffer_GetTail(t *testing.T) {
	rb := NewRingBuffer[int](5)
	rb.Add(1)
	rb.Add(2)
	rb.Add(3)
	if got := rb.Get(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("Get: %v", got)
	}
	for i := 4; i <= 8; i++ {
		rb.Add(i)
	}
	if got := rb.Get(); !reflect.DeepEqual(got, []int{4, 5, 6, 7, 8}) {
		t.Errorf("Get: %v", got)
	}
	if got := rb.Tail(3); !reflect.DeepEqual(got, []int{6, 7, 8}) {
		t.Errorf("Tail: %v", got)
	}
	if got := rb.Tail(99); len(got) != 5 {
		t.Errorf("Tail beyond count: %v", got)
	}
	rb.Reset()
	if rb.Len() != 0 || len(rb.Get()) != 0 {
		t.Errorf("Reset: len %d", rb.Len())
	}
}

func TestRingBuffer_Concurrent(t *testing.T) {
	rb := NewRingBuffer[int](50)
	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rb.Add(i*100 + j)
				_ = rb.Tail(3)
			}
		}(i)
	}
	wg.Wait()
	if rb.Len() != 50 {
		t.Errorf("Expected 50, got %d", rb.Len())
	}
}
