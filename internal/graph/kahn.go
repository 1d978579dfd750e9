package graph

import (
	"container/list"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ProcessingQueue holds nodes whose dependencies are satisfied, kept in
// (phase, name) order so the resulting plan is deterministic.
type ProcessingQueue struct {
	queue *list.List
	less  func(a, b string) bool
}

// NewProcessingQueue creates an empty queue ordered by less.
func NewProcessingQueue(less func(a, b string) bool) *ProcessingQueue {
	return &ProcessingQueue{queue: list.New(), less: less}
}

// Enqueue inserts node at its ordered position.
func (pq *ProcessingQueue) Enqueue(node string) {
	for e := pq.queue.Front(); e != nil; e = e.Next() {
		if pq.less(node, e.Value.(string)) {
			pq.queue.InsertBefore(node, e)
			return
		}
	}
	pq.queue.PushBack(node)
}

// Dequeue removes and returns the first node.
func (pq *ProcessingQueue) Dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

// Len returns the number of queued nodes.
func (pq *ProcessingQueue) Len() int {
	return pq.queue.Len()
}

// IsEmpty reports whether the queue is empty.
func (pq *ProcessingQueue) IsEmpty() bool {
	return pq.queue.Len() == 0
}

// CalculateInDegrees counts the dependencies of every node.
func (g *Graph) CalculateInDegrees() map[string]int {
	inDegree := make(map[string]int, len(g.Nodes))
	for name := range g.Nodes {
		inDegree[name] = 0
	}
	for _, children := range g.Children {
		for _, child := range children {
			inDegree[child]++
		}
	}
	return inDegree
}

func (g *Graph) initializeQueue(inDegree map[string]int) *ProcessingQueue {
	pq := NewProcessingQueue(g.less)
	for name, degree := range inDegree {
		if degree == 0 {
			pq.Enqueue(name)
		}
	}
	return pq
}

// ErrCycleDetected is matched by every CycleError.
var ErrCycleDetected = errors.New("cycle detected in dependency graph")

// CycleInfo describes the part of the graph Kahn's algorithm could not order.
type CycleInfo struct {
	TotalNodes        int
	ProcessedNodes    int
	UnprocessedNodes  []string // part of or blocked by a cycle
	CycleParticipants []string
	CyclePath         []string // e.g. [A, B, C, A]
}

// CycleError reports unit dependencies that form a cycle.
type CycleError struct {
	Info *CycleInfo
}

func (e *CycleError) Error() string {
	msg := fmt.Sprintf("cycle detected in dependency graph: %d of %d units could not be ordered",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}
	if len(e.Info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\nUnits in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}

	if len(e.Info.UnprocessedNodes) > len(e.Info.CycleParticipants) {
		participantSet := make(map[string]bool)
		for _, p := range e.Info.CycleParticipants {
			participantSet[p] = true
		}
		var blocked []string
		for _, u := range e.Info.UnprocessedNodes {
			if !participantSet[u] {
				blocked = append(blocked, u)
			}
		}
		if len(blocked) > 0 {
			msg += fmt.Sprintf("\nUnits blocked by cycle: %s", strings.Join(blocked, ", "))
		}
	}
	return msg
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// DetectIncompleteProcessing runs Kahn's algorithm and describes whatever
// could not be processed. It returns nil for an acyclic graph.
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	inDegree := g.CalculateInDegrees()
	queue := g.initializeQueue(inDegree)

	processed := make(map[string]bool)
	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		processed[node] = true
		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	if len(processed) == len(g.Nodes) {
		return nil
	}

	var unprocessed []string
	unprocessedSet := make(map[string]bool)
	for name := range g.Nodes {
		if !processed[name] {
			unprocessed = append(unprocessed, name)
			unprocessedSet[name] = true
		}
	}
	sort.Strings(unprocessed)

	var participants []string
	for _, node := range unprocessed {
		if g.canReachSelf(node, unprocessedSet) {
			participants = append(participants, node)
		}
	}

	var cyclePath []string
	if len(participants) > 0 {
		cyclePath = g.FindCyclePath(participants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        len(g.Nodes),
		ProcessedNodes:    len(processed),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: participants,
		CyclePath:         cyclePath,
	}
}

// HasCycle reports whether the graph has a cycle.
func (g *Graph) HasCycle() bool {
	return g.DetectIncompleteProcessing() != nil
}

// FindCyclePath returns one cycle through start, with start at both ends.
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}
	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}
	return nil
}

func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	for _, child := range g.GetChildren(current) {
		if !allowedNodes[child] {
			continue
		}
		if child == target {
			*path = append(*path, target)
			return true
		}
		if visited[child] {
			continue
		}
		visited[child] = true
		*path = append(*path, child)
		if g.dfsFindPath(child, target, visited, allowedNodes, path) {
			return true
		}
		*path = (*path)[:len(*path)-1]
	}
	return false
}

func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	if current == target && !isStart {
		return true
	}
	if visited[current] || !allowedNodes[current] {
		return false
	}
	visited[current] = true
	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}
	return false
}

// TopologicalSort returns units in run order: every unit after its
// dependencies, ties broken by phase and then name.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := g.CalculateInDegrees()
	queue := g.initializeQueue(inDegree)

	result := make([]string, 0, len(g.Nodes))
	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		result = append(result, node)
		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	if len(result) != len(g.Nodes) {
		return nil, &CycleError{Info: g.DetectIncompleteProcessing()}
	}
	return result, nil
}

// Validate fails with a CycleError when the graph cannot be ordered.
func (g *Graph) Validate() error {
	if info := g.DetectIncompleteProcessing(); info != nil {
		return &CycleError{Info: info}
	}
	return nil
}
