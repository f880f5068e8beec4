// Package quarantine stages untrusted files before verification and
// promotes them once they have been accepted.
//
// # Layout
//
// The quarantine directory is shared between runs. Each run works in its own
// subdirectory named after a random run ID, so concurrent runs never see each
// other's files:
//
//	~/pgp-cp_quar/
//	├── 5b0e...c1.lock          lock held on one output path
//	└── 0f6d4e2a-.../           one run
//	    ├── a.bin
//	    └── a.bin.sig
//
// # Guarantees
//
//   - Verification and promotion only ever read the staged copies, never the
//     caller-supplied paths.
//   - Staged copies are written to a temporary name, synced and renamed, so a
//     staged file is either complete or absent.
//   - Promotion renames the staged file onto the output path. Across
//     filesystems it copies to a temporary file beside the output and renames
//     that, so readers of the output path never see a partial file.
//   - Only one run at a time may promote to a given output path.
package quarantine
