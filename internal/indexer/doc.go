// Package indexer runs the gateway stub pipeline over files and directories.
//
// For each directory the indexer scans for gateway files, fans the work out
// over a bounded pool of goroutines, and returns the stub results grouped by
// classification:
//
//	idx, err := indexer.New(indexer.DefaultConfig(), indexer.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	buckets, err := idx.ProcessDirectory(ctx, "/path/to/project")
//	fmt.Printf("%d to create, %d to overwrite, %d unchanged\n",
//	    len(buckets.Create), len(buckets.Overwrite), len(buckets.Unchanged))
//
// # Pipeline
//
// Every gateway goes through the same steps inside one task:
//
//  1. Parse the gateway (unparseable files are logged and dropped)
//  2. Read its module list, or fall back to sibling files
//  3. Union the sibling export lists with the gateway's direct symbols
//  4. Render the stub body (files with no symbols are dropped)
//  5. Classify against the existing stub
//
// # Concurrency
//
// Directories are processed one at a time. Within a directory there is one
// task per gateway on an errgroup limited to Config.Workers. The processed
// set (SeenSet) is the only shared state: a gateway's identity is claimed
// under its mutex before the task is dispatched, so a file named explicitly
// and found again by a directory scan is processed once. Each task writes its
// result into its own slot; results are sorted by stub path after the pool
// drains.
//
// A panicking task is recovered, logged, and contributes nothing. Cancelling
// the context stops new tasks from being dispatched.
//
// # Thread Safety
//
// An Indexer may be shared between goroutines, but its SeenSet is shared with
// it: callers that want independent runs should create one Indexer per run or
// pass a fresh set with WithSeenSet.
package indexer
