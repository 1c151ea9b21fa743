/*
Package tracker contains the session model of Tahti: the song being edited, its
undo history, the transport and the player, and the workflows generating audio
clips with an external service.

The Model is owned by the UI goroutine and the Player by the audio goroutine.
They do not share memory; everything goes through the Broker. The model sends
song snapshots and transport commands to the player, and the player sends back
its status and rendered buffers. Results of background requests, e.g. a
finished generation, arrive in the same channel and are applied in
Model.ProcessMsg.

The UI does not modify the Model data directly, rather, there are types Action
and Bool which can be used to manipulate the model data in a controlled way.
For example, model.Play().Start() returns an Action to start the transport,
which can be executed with model.Play().Start().Do().

The methods are grouped based on their functionalities. For example,
model.Track() groups all the ways to manipulate the tracks, model.Play() the
transport and model.History() undo and redo. A generation workflow is started
with model.NewGeneration(slot) and is disposed with its Close method.
*/
package tracker
