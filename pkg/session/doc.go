/*
Package session serializes turn processing per conversation.

The Manager guarantees that at most one turn mutates a given session at a
time within the process, and, when configured with a DistributedLocker,
across replicas as well. Locks are reference counted so idle sessions cost
nothing.
*/
package session
