package simulate

import "container/heap"

// scriptHeap implements container/heap.Interface for scripted actions,
// earliest first. Actions at the same instant keep script order.
type scriptHeap []action

func (h scriptHeap) Len() int { return len(h) }
func (h scriptHeap) Less(i, j int) bool {
	if h[i].At.Equal(h[j].At) {
		return h[i].seq < h[j].seq
	}
	return h[i].At.Before(h[j].At)
}
func (h scriptHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scriptHeap) Push(x any) {
	*h = append(*h, x.(action))
}

func (h *scriptHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func heapPush(h *scriptHeap, a action) {
	heap.Push(h, a)
}

// heapPop removes and returns the earliest action. Panics if h is empty.
func heapPop(h *scriptHeap) action {
	return heap.Pop(h).(action)
}
