/*
Package engine assembles and drives the ingestion pipeline.

An Engine owns the PVM, the view coordinator and the loaded plugins. Its
lifecycle is deliberately rigid:

 1. New loads configuration and plugins. A plugin that fails to load fails
    construction; nothing is half-initialised.
 2. InitPipeline wires sink → coordinator → built-in and plugin view types.
    It fails if a pipeline is already running.
 3. Views are instantiated by name or type ID while the pipeline runs.
 4. IngestReader streams records through the pipeline.
 5. ShutdownPipeline closes the change-event channel, drains the
    broadcaster and joins every view. Close does the same if the caller
    forgot.

Engine-level failures (pipeline state, plugin loads, duplicate view names)
surface as errors; a stable numeric code for each is available via CodeOf
for the C adapter.
*/
package engine
