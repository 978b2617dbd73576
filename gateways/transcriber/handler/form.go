package handler

const uploadForm = `<!DOCTYPE html>
<html lang="id">
<head>
  <meta charset="utf-8">
  <title>Video Transcriber</title>
</head>
<body>
  <h1>Upload Video</h1>
  <form action="/process-video" method="post" enctype="multipart/form-data">
    <input type="file" name="video" accept="video/mp4,video/x-matroska" required>
    <button type="submit">Process</button>
  </form>
</body>
</html>
`
