/*
The sync package implements fikasync's profile synchronization algorithm. It
keeps the game's local profile directory and the remote store consistent
across play sessions, where either side may have advanced while the other was
offline.

Each profile is compared by two signals:

 1. Its content hash. Equal hashes always mean the copies are in sync, no
    matter what their timestamps say.
 2. Its progress timestamp, a counter the game writes inside the profile. It's
    only consulted when the hashes differ, to decide which copy is ahead.

A session has two passes:

 1. Pull, before the game starts. Remote profiles that are ahead of (or
    missing from) the local directory are downloaded, backing up whatever they
    overwrite. Local profiles that are ahead of the remote, or that don't exist
    remotely, are never uploaded here. They're recorded in a PendingSet.
 2. Push, after the game exits. Profiles whose timestamp advanced during the
    session (relative to the SessionSnapshot captured before it started) are
    uploaded. Pending profiles are uploaded only after re-checking that the
    remote copy hasn't moved ahead in the meantime.

The PendingSet and SessionSnapshot are plain values that the caller carries
from one pass to the next.
*/
package sync
