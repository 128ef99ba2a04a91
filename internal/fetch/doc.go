// Package fetch retrieves the audio track of a video reference into scratch
// storage by driving yt-dlp.
//
// Fetch first asks yt-dlp for metadata so references without any audio
// format fail fast with ReasonNoAudioTrack, then downloads the best
// audio-only stream to the caller supplied destination and inspects it with
// ffprobe. Network failures are retried once after a short backoff;
// unavailable or private media is not retried. Cancellation and failures
// remove the destination and any .part/.ytdl intermediates.
package fetch
