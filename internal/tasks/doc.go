// Package tasks turns a mood prompt into a playlist.
//
// # Pipeline
//
// [MoodEngine.Run] walks one run through a fixed sequence of states:
//
//	Start -> ContextBuilt -> PromptsComposed -> TitleGenerated -> QueriesGenerated -> TracksResolved -> PlaylistCreated
//
// Each stage is a small component that can be used on its own:
//   - [BuildContext] : web snippets and a notes file fused into a [PipelineContext]
//   - [ComposePrompts] : the title and query [CompletionRequest] pair
//   - [Invoker] : one completion call, blank output rejected
//   - [ParseQueries] : one search query per non-empty line
//   - [Resolver] : first track hit per query, misses skipped, query order kept
//   - [Assembler] : playlist creation and track attachment
//
// # Failures
//
// Any stage error ends the run with a [*Failure] tagged by [FailureKind] and carrying the
// [Diagnostics] gathered so far. [KindTrackAttach] is a partial success: the playlist exists
// and its ID is on the failure. [MoodEngine.RunWithRetry] repeats the whole run for failures
// that happened before any playlist was created.
//
// # Progress Reporting
//
// Each transition sends a [ProgressUpdate] on a caller-supplied channel. Sends use select
// with default and never block the run; the package does no logging of its own.
package tasks
