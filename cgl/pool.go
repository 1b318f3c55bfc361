package cgl

import (
	"log"
	"sync"
	"sync/atomic"
)

//Task is one unit of work submitted to a Pool.
type Task interface {
	Run()
}

//Pool fans tasks out to a fixed set of workers and joins them with
//WaitAll. A panicking task marks the pool as failed instead of taking the
//process down; callers re-run the work sequentially in that case.
type Pool struct {
	tasks  chan Task
	wg     sync.WaitGroup
	failed int32
}

//NewPool starts workersNum workers consuming the task channel.
func NewPool(workersNum int) *Pool {
	pool := &Pool{tasks: make(chan Task, workersNum)}
	for w := 0; w < workersNum; w++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.runOne(task)
	}
}

func (p *Pool) runOne(task Task) {
	defer func() {
		if r := recover(); r != nil {
			atomic.StoreInt32(&p.failed, 1)
			log.Print("task failed, falling back to sequential execution: ", r)
		}
	}()
	task.Run()
}

//AddTask queues one task for execution.
func (p *Pool) AddTask(task Task) {
	p.tasks <- task
}

//Close signals that no more tasks will be added.
func (p *Pool) Close() {
	close(p.tasks)
}

//WaitAll blocks until every queued task has finished.
func (p *Pool) WaitAll() {
	p.wg.Wait()
}

//Failed reports whether any task panicked.
func (p *Pool) Failed() bool {
	return atomic.LoadInt32(&p.failed) != 0
}

//taskFindSplit evaluates the split search for one candidate attribute and
//stores the result at its slot.
type taskFindSplit struct {
	result []candidateSplit
	j      int
	search func(j int) candidateSplit
}

func (t *taskFindSplit) Run() {
	t.result[t.j] = t.search(t.j)
}
