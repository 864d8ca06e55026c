package btl

import "sync"

//Task is a unit of work executed by a Pool.
type Task interface {
	Execute()
}

//Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup
}

//NewPool starts threadsNum workers. Non-positive values start one worker.
func NewPool(threadsNum int) *Pool {
	if threadsNum < 1 {
		threadsNum = 1
	}
	pool := &Pool{tasks: make(chan Task)}
	pool.wg.Add(threadsNum)
	for ind := 0; ind < threadsNum; ind++ {
		go pool.work()
	}
	return pool
}

func (pool *Pool) work() {
	defer pool.wg.Done()
	for task := range pool.tasks {
		task.Execute()
	}
}

//AddTask hands a task to a free worker. It blocks until one is available.
func (pool *Pool) AddTask(task Task) {
	pool.tasks <- task
}

//Close tells workers that no more tasks will come.
func (pool *Pool) Close() {
	close(pool.tasks)
}

//WaitAll blocks until every added task is executed. Close must be called first.
func (pool *Pool) WaitAll() {
	pool.wg.Wait()
}

//TaskFunc adapts a function to the Task interface.
type TaskFunc func()

//Execute calls the function.
func (f TaskFunc) Execute() { f() }
