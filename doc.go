// Package tasty is the execution core of a test-running framework: it
// compiles a hierarchical test tree, in which subtrees may share
// lazily-created resources, into a flat list of runnable actions and executes
// them with bounded parallelism while tracking each test's live status.
//
// Trees are built from TestCase, TestGroup and WithResource. A resource is
// acquired at most once per run, by whichever dependent test reaches it
// first, and released exactly once, by whichever dependent finishes last;
// both sides are safe under concurrent completion. Every failure mode, a
// failing or panicking body, a timeout, a failed resource acquire, a failed
// release, converges to one Result shape written exactly once to the test's
// status cell, so observers never block on an unresolved cell.
//
// Launch returns as soon as the run is dispatched; reporting and completion
// detection happen through the returned StatusMap. The console package
// provides an ordered reporter on top of it, and the config package loads
// run options from HCL.
package tasty
