// Package s3upload uploads a single local file to an S3 bucket using a
// sequential multipart upload.
//
// The file is split into fixed-size chunks (8 MiB by default). Each chunk is
// uploaded as one part, strictly one after another, and the object is
// materialized by committing the ordered part list. When a part fails the
// multipart session is aborted; a failed abort is reported together with the
// original failure.
//
// Every error returned by this package is an *errors.Error whose Kind tells
// which phase failed:
//
//	client, err := s3upload.New(ctx, s3upload.WithRegion("eu-west-1"))
//	if err != nil {
//	    return err // errors.KindCredentials when no credentials were found
//	}
//
//	result, err := client.UploadFile(ctx, "my-bucket", "videos/demo.mp4", "/tmp/demo.mp4")
//	if err != nil {
//	    if abortErr, ok := errors.AbortFailure(err); ok {
//	        log.Printf("session %s may be orphaned: %v", abortErr.UploadID, abortErr)
//	    }
//	    return err
//	}
//	fmt.Printf("uploaded %d parts\n", len(result.Parts))
package s3upload
