/*
Package queue defines the tasks that grow the nodes of a tree and the
Queue interface workers pull them from.

New returns a FIFO queue kept in the process memory. Package redisq
implements the interface on redis, with the tasks encoded by package
json.
*/
package queue
