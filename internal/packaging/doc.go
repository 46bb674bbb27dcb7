// Package packaging assembles publish packs from rendered clips.
//
// A pack is a self-contained folder under outputs/<profile>/ holding the
// vertical video, a thumbnail, paste-ready post copy per destination, and
// machine- and human-readable metadata. Packs are the pipeline's only
// deliverable; everything upstream exists to produce them.
package packaging
